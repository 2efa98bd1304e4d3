package openproject

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/steveyegge/j2o/internal/types"
)

// contentHref is the stable inline reference to an attachment's content.
func contentHref(id int) string {
	return fmt.Sprintf("%s/attachments/%d/content", apiPrefix, id)
}

// ListArtifacts lists the attachments of a work package.
func (c *Client) ListArtifacts(ctx context.Context, id int) ([]*types.Artifact, error) {
	var page Collection[Attachment]
	if err := c.getJSON(ctx, fmt.Sprintf("/work_packages/%d/attachments", id), &page); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	out := make([]*types.Artifact, 0, len(page.Embedded.Elements))
	for _, a := range page.Embedded.Elements {
		out = append(out, &types.Artifact{ID: a.ID, Filename: a.FileName, Href: contentHref(a.ID)})
	}
	return out, nil
}

// UploadArtifact attaches content to a work package. The content is read
// once and buffered so a retried request can resend it.
func (c *Client) UploadArtifact(ctx context.Context, id int, filename string, content io.Reader, actAs string) (*types.Artifact, error) {
	body, contentType, err := multipartBody(filename, content)
	if err != nil {
		return nil, err
	}

	req := request{
		method:      http.MethodPost,
		path:        fmt.Sprintf("/work_packages/%d/attachments", id),
		body:        body,
		contentType: contentType,
		actAs:       actAs,
	}
	var out Attachment
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &types.Artifact{ID: out.ID, Filename: out.FileName, Href: contentHref(out.ID)}, nil
}

// multipartBody builds the two-part upload body: JSON metadata, then the file.
func multipartBody(filename string, content io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	meta, err := json.Marshal(map[string]string{"fileName": filename})
	if err != nil {
		return nil, "", err
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="metadata"`)
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create metadata part: %w", err)
	}
	if _, err := part.Write(meta); err != nil {
		return nil, "", err
	}

	part, err = w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read attachment content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
