package openproject

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/steveyegge/j2o/internal/types"
)

// ListActivity returns the journal of a work package.
func (c *Client) ListActivity(ctx context.Context, id int) ([]*types.Activity, error) {
	var page Collection[Activity]
	if err := c.getJSON(ctx, fmt.Sprintf("/work_packages/%d/activities", id), &page); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	out := make([]*types.Activity, 0, len(page.Embedded.Elements))
	for _, a := range page.Embedded.Elements {
		act := &types.Activity{ID: a.ID}
		if a.Comment != nil {
			act.Comment = a.Comment.Raw
		}
		out = append(out, act)
	}
	return out, nil
}

// PostComment adds a comment to the journal.
func (c *Client) PostComment(ctx context.Context, id int, markup, actAs string) error {
	body := map[string]interface{}{"comment": markdown(markup)}
	return c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/work_packages/%d/activities", id), body, nil, actAs)
}

// AddWatcher subscribes a user to a work package.
func (c *Client) AddWatcher(ctx context.Context, id int, user types.User) error {
	body := map[string]interface{}{"user": hrefTo("users", user.ID)}
	err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/work_packages/%d/watchers", id), body, nil, "")

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity && apiErr.contains("already") {
		return fmt.Errorf("%w: %s", types.ErrAlreadyWatching, apiErr.Message)
	}
	return err
}
