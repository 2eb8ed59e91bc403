// Package background is the entry point for events delivered while the
// app shell is backgrounded or not running. It mirrors the OS-invoked
// handler of the device world: short-lived, time-budgeted, and restricted
// to the notification presenter and the channel registry. It shares
// nothing with the foreground coordinator except durable session storage.
package background

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/channel"
	"github.com/astroline/consult-agent-go/internal/config"
	"github.com/astroline/consult-agent-go/internal/model"
	"github.com/astroline/consult-agent-go/internal/presenter"
	"github.com/astroline/consult-agent-go/internal/repository"
)

type Handler struct {
	registry  *channel.Registry
	presenter *presenter.Presenter
	sessions  repository.SessionStateRepository
	ownerID   string
}

func NewHandler(registry *channel.Registry, p *presenter.Presenter, sessions repository.SessionStateRepository, ownerID string) *Handler {
	return &Handler{registry: registry, presenter: p, sessions: sessions, ownerID: ownerID}
}

// HandleRequest surfaces an incoming request as a system notification.
// Channels are re-ensured every time because this path may be the first
// code to run after a cold start.
func (h *Handler) HandleRequest(ctx context.Context, event *model.RequestEvent) {
	ctx, cancel := context.WithTimeout(ctx, config.BackgroundBudget)
	defer cancel()

	if h.sessionAlreadyActive(ctx, event.SessionID) {
		log.Debug().
			Str("sessionId", event.SessionID).
			Msg("background: request is the active session, skipping alert")
		return
	}

	h.registry.EnsureChannels(ctx)
	h.presenter.PresentRequest(ctx, event)

	log.Info().
		Str("sessionId", event.SessionID).
		Str("kind", string(event.Kind)).
		Msg("background: request presented")
}

// HandleMessage surfaces a chat message as a low-priority notification.
func (h *Handler) HandleMessage(ctx context.Context, event *model.MessageEvent) {
	ctx, cancel := context.WithTimeout(ctx, config.BackgroundBudget)
	defer cancel()

	h.registry.EnsureChannels(ctx)
	h.presenter.PresentMessage(ctx, event)
}

// HandleCancel removes the request alert when the requester withdrew while
// the app was backgrounded.
func (h *Handler) HandleCancel(ctx context.Context, sessionID string) {
	ctx, cancel := context.WithTimeout(ctx, config.BackgroundBudget)
	defer cancel()

	h.presenter.Cancel(ctx, sessionID)
}

// sessionAlreadyActive consults the durable record, the only state shared
// with the foreground context: a request whose session was already accepted
// there must not re-alert.
func (h *Handler) sessionAlreadyActive(ctx context.Context, sessionID string) bool {
	row, err := h.sessions.Find(ctx, h.ownerID)
	if err != nil {
		log.Warn().Err(err).Msg("background: session lookup failed, presenting anyway")
		return false
	}
	if row == nil {
		return false
	}
	session, err := row.Session()
	if err != nil {
		return false
	}
	return session.Params.SessionID == sessionID
}
