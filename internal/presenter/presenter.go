package presenter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/audit"
	"github.com/astroline/consult-agent-go/internal/channel"
	"github.com/astroline/consult-agent-go/internal/model"
	"github.com/astroline/consult-agent-go/internal/util"
)

// Action ids carried back by notification action callbacks.
const (
	ActionAccept = "accept_request"
	ActionReject = "reject_request"
)

// Notification is a system-level alert posted through the device bridge.
// ID doubles as the replacement key: re-posting with the same ID replaces
// the previous notification instead of duplicating it.
type Notification struct {
	ID           string            `json:"id"`
	ChannelID    string            `json:"channelId"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	AvatarURL    string            `json:"avatarUrl,omitempty"`
	Actions      []string          `json:"actions,omitempty"`
	Ongoing      bool              `json:"ongoing,omitempty"`
	TimeoutAfter time.Duration     `json:"timeoutAfter,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// Platform is the slice of the device bridge the presenter needs.
type Platform interface {
	ShowNotification(ctx context.Context, n Notification) error
	CancelNotification(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
}

// Presenter renders and cancels system-level alerts for incoming requests
// and chat messages. It also runs in the restricted background execution
// context, so no method ever lets an error escape: failures are logged and
// swallowed.
type Presenter struct {
	platform Platform
	registry *channel.Registry
	timeout  time.Duration
}

func New(platform Platform, registry *channel.Registry, timeout time.Duration) *Presenter {
	return &Presenter{
		platform: platform,
		registry: registry,
		timeout:  timeout,
	}
}

// PresentRequest shows the full-screen call/chat request alert with Accept
// and Reject actions. The alert is ongoing, keyed by session id, and
// carries an explicit timeout after which the device cancels it on its own;
// the coordinator mirrors the same deadline and fires Expire independently.
func (p *Presenter) PresentRequest(ctx context.Context, event *model.RequestEvent) {
	title := "New Chat Request"
	if event.Kind == model.KindCallRequest {
		title = "Incoming Call"
	}

	n := Notification{
		ID:           event.SessionID,
		ChannelID:    p.registry.ChannelFor(channel.UrgentRequests),
		Title:        title,
		Body:         fmt.Sprintf("%s · %.0f/min", event.Requester.DisplayName, event.Rate),
		Actions:      []string{ActionAccept, ActionReject},
		Ongoing:      true,
		TimeoutAfter: p.timeout,
		Data: map[string]string{
			"sessionId": event.SessionID,
			"kind":      string(event.Kind),
		},
	}

	if util.IsValidHTTPURL(event.Requester.AvatarURL) {
		n.AvatarURL = event.Requester.AvatarURL
	} else if event.Requester.AvatarURL != "" {
		log.Debug().
			Str("sessionId", event.SessionID).
			Msg("dropping malformed avatar url from request notification")
	}

	if err := p.platform.ShowNotification(ctx, n); err != nil {
		audit.Log(audit.Event{
			Type:      audit.EventNotificationBlocked,
			SessionID: event.SessionID,
			Kind:      event.Kind,
			Details:   map[string]interface{}{"error": err.Error()},
		})
		log.Error().Err(err).
			Str("sessionId", event.SessionID).
			Str("kind", string(event.Kind)).
			Msg("failed to present request notification")
	}
}

// PresentMessage shows a low-priority, dismissible chat-message
// notification.
func (p *Presenter) PresentMessage(ctx context.Context, event *model.MessageEvent) {
	n := Notification{
		ID:        "msg:" + event.SessionID,
		ChannelID: p.registry.ChannelFor(channel.Messages),
		Title:     event.SenderName,
		Body:      util.Truncate(event.Preview, 120),
		Data: map[string]string{
			"sessionId": event.SessionID,
		},
	}

	if err := p.platform.ShowNotification(ctx, n); err != nil {
		log.Error().Err(err).
			Str("sessionId", event.SessionID).
			Msg("failed to present message notification")
	}
}

// Cancel removes the request alert for one session id, if any.
func (p *Presenter) Cancel(ctx context.Context, sessionID string) {
	if err := p.platform.CancelNotification(ctx, sessionID); err != nil {
		log.Warn().Err(err).
			Str("sessionId", sessionID).
			Msg("failed to cancel notification")
	}
}

func (p *Presenter) CancelAll(ctx context.Context) {
	if err := p.platform.CancelAll(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to cancel all notifications")
	}
}
