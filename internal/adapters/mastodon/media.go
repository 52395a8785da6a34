package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"mastothread/internal/domain"
)

// UploadMedia sends file bytes with their description and returns the
// server-assigned media id. Large uploads may come back 202 while the
// server is still processing; the id is valid either way.
func (c *Client) UploadMedia(ctx context.Context, file io.Reader, filename, description string) (domain.UploadReceipt, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return domain.UploadReceipt{}, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return domain.UploadReceipt{}, fmt.Errorf("read media file: %w", err)
	}
	if description != "" {
		if err := w.WriteField("description", description); err != nil {
			return domain.UploadReceipt{}, fmt.Errorf("build upload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return domain.UploadReceipt{}, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/media", &buf)
	if err != nil {
		return domain.UploadReceipt{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return domain.UploadReceipt{}, err
	}
	defer resp.Body.Close()

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return domain.UploadReceipt{}, fmt.Errorf("decode media response: %w", err)
	}
	return domain.UploadReceipt{MediaID: uploaded.ID, RateRemaining: rateRemaining(resp)}, nil
}
