package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventpass/internal/dto"
)

// Resolver looks up scanned text and performs check-ins for one event.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (dto.ScanResult, error)
	CheckIn(ctx context.Context, registrationID string) (dto.ActionResult, error)
}

// APIClient talks to the organizer API of the server.
type APIClient struct {
	base    string
	eventID string
	token   string
	http    *http.Client
}

var _ Resolver = (*APIClient)(nil)

func NewAPIClient(base, eventID, token string, timeout time.Duration) *APIClient {
	return &APIClient{
		base:    strings.TrimRight(base, "/"),
		eventID: eventID,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) Resolve(ctx context.Context, raw string) (dto.ScanResult, error) {
	var out struct {
		Success bool           `json:"success"`
		Message string         `json:"message"`
		Data    dto.ScanResult `json:"data"`
	}
	if err := c.post(ctx, "/scan", dto.ScanRequest{Data: raw}, &out); err != nil {
		return dto.ScanResult{}, err
	}
	if !out.Success {
		return dto.ScanResult{}, fmt.Errorf("scan rejected: %s", out.Message)
	}
	return out.Data, nil
}

func (c *APIClient) CheckIn(ctx context.Context, registrationID string) (dto.ActionResult, error) {
	var out dto.ActionResult
	err := c.post(ctx, "/checkin", dto.CheckInRequest{RegistrationID: registrationID}, &out)
	return out, err
}

func (c *APIClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := c.base + "/v1/admin/events/" + url.PathEscape(c.eventID) + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// action failures come back as 422 with a readable body
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
