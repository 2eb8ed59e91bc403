package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/astroline/consult-agent-go/internal/config"
	apperrors "github.com/astroline/consult-agent-go/internal/errors"
)

// Client tells the consultation platform that a request was declined so
// the requester's app stops ringing. Callers treat every call as best
// effort; a failure here never blocks local state cleanup.
type Client struct {
	baseURL     string
	deviceToken string
	httpClient  *http.Client
}

func NewClient(baseURL, deviceToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		deviceToken: deviceToken,
		httpClient:  &http.Client{Timeout: config.NotifyRequestTimeout},
	}
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (c *Client) Decline(ctx context.Context, sessionID string, reason string) error {
	if c.baseURL == "" {
		// Not configured; nothing to notify.
		return nil
	}

	body, err := json.Marshal(declineRequest{Reason: reason})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/requests/%s/decline", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.deviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.deviceToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.External("consultation api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apperrors.External("consultation api", fmt.Errorf("decline returned status %d", resp.StatusCode))
	}
	return nil
}
