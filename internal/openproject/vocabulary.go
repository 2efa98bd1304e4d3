package openproject

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/types"
)

// LoadVocabulary fetches types, statuses and priorities concurrently.
func (c *Client) LoadVocabulary(ctx context.Context) (*tracker.Vocabulary, error) {
	var vocab tracker.Vocabulary
	g, gctx := errgroup.WithContext(ctx)
	for path, dst := range map[string]*[]types.VocabularyItem{
		"/types":      &vocab.Types,
		"/statuses":   &vocab.Statuses,
		"/priorities": &vocab.Priorities,
	} {
		g.Go(func() error {
			items, err := c.vocabulary(gctx, path)
			if err != nil {
				return fmt.Errorf("load %s: %w", path[1:], err)
			}
			*dst = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &vocab, nil
}

// vocabulary fetches one list, ordered by position so "first" is stable.
func (c *Client) vocabulary(ctx context.Context, path string) ([]types.VocabularyItem, error) {
	var page Collection[VocabularyElement]
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}
	elems := page.Embedded.Elements
	sort.SliceStable(elems, func(i, j int) bool { return elems[i].Position < elems[j].Position })

	items := make([]types.VocabularyItem, 0, len(elems))
	for _, e := range elems {
		items = append(items, types.VocabularyItem{ID: e.ID, Name: e.Name, IsDefault: e.IsDefault})
	}
	return items, nil
}

// User is the authenticated principal.
type User struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Me returns the API key's owner. It doubles as a credentials check.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.getJSON(ctx, "/users/me", &u); err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	return &u, nil
}

// Project is the target project.
type Project struct {
	ID         int    `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// Project fetches a project by identifier or numeric ID.
func (c *Client) Project(ctx context.Context, idOrIdentifier string) (*Project, error) {
	var p Project
	if err := c.getJSON(ctx, "/projects/"+url.PathEscape(idOrIdentifier), &p); err != nil {
		return nil, fmt.Errorf("fetch project %s: %w", idOrIdentifier, err)
	}
	return &p, nil
}
