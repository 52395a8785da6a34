package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"mastothread/internal/domain"
)

type searchResponse struct {
	Statuses []struct {
		ID            string `json:"id"`
		QuoteApproval struct {
			CurrentUser string `json:"current_user"`
		} `json:"quote_approval"`
	} `json:"statuses"`
}

// SearchStatus resolves a URL to an existing post. It returns the status
// id when exactly one status matches and the current actor is allowed to
// quote it; otherwise it returns the empty id with no error.
func (c *Client) SearchStatus(ctx context.Context, query string) (string, error) {
	q := url.Values{
		"q":       {query},
		"type":    {"statuses"},
		"resolve": {"true"},
	}
	var res searchResponse
	if _, err := c.getJSON(ctx, "/api/v2/search?"+q.Encode(), &res); err != nil {
		return "", err
	}
	if len(res.Statuses) != 1 {
		return "", nil
	}
	switch res.Statuses[0].QuoteApproval.CurrentUser {
	case "automatic", "manual":
		return res.Statuses[0].ID, nil
	}
	return "", nil
}

type createStatusRequest struct {
	Status              string   `json:"status"`
	SpoilerText         string   `json:"spoiler_text,omitempty"`
	Visibility          string   `json:"visibility"`
	InReplyToID         string   `json:"in_reply_to_id,omitempty"`
	MediaIDs            []string `json:"media_ids,omitempty"`
	Language            string   `json:"language,omitempty"`
	QuotedStatusID      string   `json:"quoted_status_id,omitempty"`
	QuoteApprovalPolicy string   `json:"quote_approval_policy,omitempty"`
}

// CreateStatus publishes one post and returns its id.
func (c *Client) CreateStatus(ctx context.Context, draft domain.StatusDraft) (domain.CreateReceipt, error) {
	payload := createStatusRequest{
		Status:         draft.Text,
		SpoilerText:    draft.Warning,
		Visibility:     string(draft.Visibility),
		InReplyToID:    draft.ReplyTo,
		MediaIDs:       draft.MediaIDs,
		Language:       draft.Language,
		QuotedStatusID: draft.QuoteTarget,
	}
	if draft.QuoteApprovalPolicy != "" && draft.QuoteApprovalPolicy != "default" {
		payload.QuoteApprovalPolicy = draft.QuoteApprovalPolicy
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.CreateReceipt{}, fmt.Errorf("encode status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/statuses", bytes.NewReader(body))
	if err != nil {
		return domain.CreateReceipt{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if draft.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", draft.IdempotencyKey)
	}

	resp, err := c.do(req)
	if err != nil {
		return domain.CreateReceipt{}, err
	}
	defer resp.Body.Close()

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return domain.CreateReceipt{}, fmt.Errorf("decode status response: %w", err)
	}
	return domain.CreateReceipt{ID: created.ID, RateRemaining: rateRemaining(resp)}, nil
}
