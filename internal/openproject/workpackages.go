package openproject

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/types"
)

var _ tracker.TargetWriter = (*Client)(nil)

// encodePayload renders a payload as a work package request body. Absent
// fields are left out so a PATCH touches only what is present.
func (c *Client) encodePayload(p *types.Payload) map[string]interface{} {
	body := map[string]interface{}{}
	links := map[string]Link{}

	if v, ok := p.Subject.Get(); ok {
		body["subject"] = v
	}
	if v, ok := p.Description.Get(); ok {
		body["description"] = markdown(v)
	}
	if v, ok := p.StartDate.Get(); ok {
		body["startDate"] = v.Format("2006-01-02")
	}
	if v, ok := p.DueDate.Get(); ok {
		body["dueDate"] = v.Format("2006-01-02")
	}
	if v, ok := p.CorrelationKey.Get(); ok && c.CorrelationField != "" {
		body[c.CorrelationField] = v
	}
	if v, ok := p.TypeID.Get(); ok {
		links["type"] = hrefTo("types", v)
	}
	if v, ok := p.StatusID.Get(); ok {
		links["status"] = hrefTo("statuses", v)
	}
	if v, ok := p.PriorityID.Get(); ok {
		links["priority"] = hrefTo("priorities", v)
	}
	if v, ok := p.AssigneeID.Get(); ok {
		links["assignee"] = hrefTo("users", v)
	}
	if v, ok := p.ResponsibleID.Get(); ok {
		links["responsible"] = hrefTo("users", v)
	}
	if v, ok := p.ParentID.Get(); ok {
		links["parent"] = hrefTo("work_packages", v)
	}
	if len(links) > 0 {
		body["_links"] = links
	}
	return body
}

func (c *Client) toWorkPackage(w *WorkPackage) *types.WorkPackage {
	wp := &types.WorkPackage{
		ID:          w.ID,
		LockVersion: w.LockVersion,
		Subject:     w.Subject,
		TypeID:      idFromHref(w.Links.Type),
		StatusID:    idFromHref(w.Links.Status),
		PriorityID:  idFromHref(w.Links.Priority),
		ParentID:    idFromHref(w.Links.Parent),
	}
	if w.Description != nil {
		wp.Description = w.Description.Raw
	}
	if c.CorrelationField != "" {
		wp.CorrelationKey = w.customString(c.CorrelationField)
	}
	return wp
}

// CreateEntity creates a work package in a project.
func (c *Client) CreateEntity(ctx context.Context, projectID string, p *types.Payload) (*types.WorkPackage, error) {
	var out WorkPackage
	path := fmt.Sprintf("/projects/%s/work_packages", url.PathEscape(projectID))
	if err := c.sendJSON(ctx, http.MethodPost, path, c.encodePayload(p), &out, ""); err != nil {
		return nil, err
	}
	return c.toWorkPackage(&out), nil
}

// UpdateEntity patches the present payload fields. A lock version mismatch
// fails with types.ErrStaleVersion.
func (c *Client) UpdateEntity(ctx context.Context, id int, p *types.Payload, expectedVersion int) (*types.WorkPackage, error) {
	body := c.encodePayload(p)
	body["lockVersion"] = expectedVersion

	var out WorkPackage
	if err := c.sendJSON(ctx, http.MethodPatch, "/work_packages/"+strconv.Itoa(id), body, &out, ""); err != nil {
		return nil, err
	}
	return c.toWorkPackage(&out), nil
}

// GetEntity fetches one work package.
func (c *Client) GetEntity(ctx context.Context, id int) (*types.WorkPackage, error) {
	var out WorkPackage
	if err := c.getJSON(ctx, "/work_packages/"+strconv.Itoa(id), &out); err != nil {
		return nil, err
	}
	return c.toWorkPackage(&out), nil
}

// correlationQuery builds a work package listing path. Without a status
// filter OpenProject lists open work packages only.
func (c *Client) correlationQuery(projectID string, offset, pageSize int, fs ...filter) string {
	fs = append([]filter{where("status", "*")}, fs...)
	q := url.Values{
		"filters":  {encodeFilters(fs...)},
		"sortBy":   {`[["id","asc"]]`},
		"offset":   {strconv.Itoa(offset)},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	return fmt.Sprintf("/projects/%s/work_packages?%s", url.PathEscape(projectID), q.Encode())
}

// ListEntitiesByCorrelationKey returns correlation key → work package ID
// for every work package of the project that carries a key. If a key
// occurs twice the lowest ID wins.
func (c *Client) ListEntitiesByCorrelationKey(ctx context.Context, projectID string) (map[string]int, error) {
	if c.CorrelationField == "" {
		return nil, errors.New("openproject correlation field not configured")
	}
	out := make(map[string]int)
	for offset := 1; ; offset++ {
		var page Collection[WorkPackage]
		path := c.correlationQuery(projectID, offset, c.pageSize(), where(c.CorrelationField, "*"))
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("list work packages: %w", err)
		}
		for i := range page.Embedded.Elements {
			w := &page.Embedded.Elements[i]
			key := w.customString(c.CorrelationField)
			if key == "" {
				continue
			}
			if _, seen := out[key]; !seen {
				out[key] = w.ID
			}
		}
		if len(page.Embedded.Elements) == 0 || offset*c.pageSize() >= page.Total {
			return out, nil
		}
	}
}

// FindEntityByCorrelationKey returns the work package carrying key, or nil.
func (c *Client) FindEntityByCorrelationKey(ctx context.Context, projectID, key string) (*types.WorkPackage, error) {
	if c.CorrelationField == "" {
		return nil, errors.New("openproject correlation field not configured")
	}
	var page Collection[WorkPackage]
	// "~" is a substring match; PROJ-1 also finds PROJ-12, so compare exactly.
	path := c.correlationQuery(projectID, 1, c.pageSize(), where(c.CorrelationField, "~", key))
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("find work package %s: %w", key, err)
	}
	for i := range page.Embedded.Elements {
		w := &page.Embedded.Elements[i]
		if w.customString(c.CorrelationField) == key {
			return c.toWorkPackage(w), nil
		}
	}
	return nil, nil
}
