package openproject

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/steveyegge/j2o/internal/types"
)

// CreateEdge creates a relation. Parent links are written onto the child
// work package; everything else goes through the relations endpoint.
func (c *Client) CreateEdge(ctx context.Context, fromID, toID int, rel types.RelationType) error {
	if rel.IsHierarchical() {
		return c.setParent(ctx, fromID, toID)
	}

	body := Relation{Type: string(rel)}
	to := hrefTo("work_packages", toID)
	body.Links.To = &to
	err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/work_packages/%d/relations", fromID), body, nil, "")
	return classifyRelationError(err)
}

func (c *Client) setParent(ctx context.Context, childID, parentID int) error {
	child, err := c.GetEntity(ctx, childID)
	if err != nil {
		return err
	}
	if child.ParentID == parentID {
		return types.ErrEdgeExists
	}
	body := map[string]interface{}{
		"lockVersion": child.LockVersion,
		"_links":      map[string]Link{"parent": hrefTo("work_packages", parentID)},
	}
	err = c.sendJSON(ctx, http.MethodPatch, "/work_packages/"+strconv.Itoa(childID), body, nil, "")
	return classifyRelationError(err)
}

// classifyRelationError maps OpenProject's validation failures onto the
// sentinel errors the resolver treats as success.
func classifyRelationError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		return err
	}
	switch {
	case apiErr.contains("already exists", "has already been taken", "already related"):
		return fmt.Errorf("%w: %s", types.ErrEdgeExists, apiErr.Message)
	case apiErr.contains("cycle", "circular", "cannot be a descendant", "ancestor"):
		return fmt.Errorf("%w: %s", types.ErrEdgeCycle, apiErr.Message)
	}
	return err
}

// FindEdge reports whether the directed relation exists.
func (c *Client) FindEdge(ctx context.Context, fromID, toID int, rel types.RelationType) (bool, error) {
	if rel.IsHierarchical() {
		wp, err := c.GetEntity(ctx, fromID)
		if err != nil {
			return false, err
		}
		return wp.ParentID == toID, nil
	}

	q := url.Values{"filters": {encodeFilters(
		where("from", "=", strconv.Itoa(fromID)),
		where("to", "=", strconv.Itoa(toID)),
		where("type", "=", string(rel)),
	)}}
	var page Collection[Relation]
	if err := c.getJSON(ctx, "/relations?"+q.Encode(), &page); err != nil {
		return false, fmt.Errorf("find relation: %w", err)
	}
	for _, r := range page.Embedded.Elements {
		if idFromHref(r.Links.From) == fromID && idFromHref(r.Links.To) == toID && r.Type == string(rel) {
			return true, nil
		}
	}
	return false, nil
}
