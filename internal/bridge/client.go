// Package bridge is the HTTP client for the device shell's local bridge:
// the small endpoint on the device that creates notification channels,
// shows and cancels system notifications. It implements both
// channel.Platform and presenter.Platform.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/astroline/consult-agent-go/internal/channel"
	"github.com/astroline/consult-agent-go/internal/config"
	apperrors "github.com/astroline/consult-agent-go/internal/errors"
	"github.com/astroline/consult-agent-go/internal/presenter"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: config.BridgeRequestTimeout},
	}
}

var _ channel.Platform = (*Client)(nil)
var _ presenter.Platform = (*Client)(nil)

func (c *Client) EnsureChannel(ctx context.Context, ch channel.Channel) error {
	return c.post(ctx, "/channels", ch)
}

func (c *Client) ShowNotification(ctx context.Context, n presenter.Notification) error {
	return c.post(ctx, "/notifications", n)
}

func (c *Client) CancelNotification(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/notifications/"+id, nil)
	if err != nil {
		return err
	}
	return c.do(req)
}

func (c *Client) CancelAll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/notifications", nil)
	if err != nil {
		return err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Bridge(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apperrors.Bridge(fmt.Errorf("bridge returned status %d for %s %s", resp.StatusCode, req.Method, req.URL.Path))
	}
	return nil
}
