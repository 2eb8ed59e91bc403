package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/audit"
	"github.com/astroline/consult-agent-go/internal/model"
	"github.com/astroline/consult-agent-go/internal/presenter"
	"github.com/astroline/consult-agent-go/internal/store"
)

// Live screen routes the coordinator navigates to on accept.
const (
	RouteLiveCall = "live-call"
	RouteLiveChat = "live-chat"
)

// Decline reasons reported to the requester.
const (
	ReasonRejected   = "rejected"
	ReasonExpired    = "expired"
	ReasonSuperseded = "superseded"
)

// DecisionListener receives the coordinator's foreground decisions. The
// app shell controller implements it; it must not call back into the
// coordinator.
type DecisionListener interface {
	ShowRequest(event *model.RequestEvent)
	DismissRequest(sessionID string)
}

// AppState reports whether the app shell is in the foreground. Backgrounded
// (or not-running) delivery goes through the system notification presenter
// instead of in-app modal state.
type AppState interface {
	Foreground() bool
}

// Navigator is the navigate(routeName, params) capability.
type Navigator interface {
	Navigate(ctx context.Context, route string, params any) error
}

// RequesterNotifier tells the requester their ask was declined.
// Best effort: failures never block local state cleanup.
type RequesterNotifier interface {
	Decline(ctx context.Context, sessionID string, reason string) error
}

type pendingRequest struct {
	event *model.RequestEvent
	timer *time.Timer
}

// Coordinator is the single writer of pending-request state and the only
// component allowed to start or end the active session. Every event source
// (push data, notification action, socket, UI button) funnels into its
// public operations.
//
// Operations are serialized by one mutex, which stands in for the original
// event loop: each handler runs to completion before the next starts, so
// interleaving between independent triggers reduces to ordering, and
// idempotence covers duplicate delivery.
type Coordinator struct {
	store     *store.Store
	presenter *presenter.Presenter
	listener  DecisionListener
	appState  AppState
	navigator Navigator
	notifier  RequesterNotifier
	expiry    time.Duration

	mu      sync.Mutex
	pending map[model.RequestKind]*pendingRequest
}

func New(
	sessionStore *store.Store,
	p *presenter.Presenter,
	listener DecisionListener,
	appState AppState,
	navigator Navigator,
	notifier RequesterNotifier,
	expiry time.Duration,
) *Coordinator {
	return &Coordinator{
		store:     sessionStore,
		presenter: p,
		listener:  listener,
		appState:  appState,
		navigator: navigator,
		notifier:  notifier,
		expiry:    expiry,
		pending:   make(map[model.RequestKind]*pendingRequest),
	}
}

// OnRequestEvent admits a normalized incoming request. Duplicate delivery
// of the same sessionId+kind is a no-op. A call request supersedes a
// pending chat request; a chat request never interrupts a pending call.
// An existing active session does not auto-reject the new request: the
// astrologer may be offered a second request while in a session.
func (c *Coordinator) OnRequestEvent(ctx context.Context, event *model.RequestEvent) {
	defer c.guard("onRequestEvent")
	if event == nil || event.SessionID == "" {
		log.Debug().Msg("coordinator: dropping request event with no session id")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.pending[event.Kind]; ok {
		if existing.event.SessionID == event.SessionID {
			audit.Log(audit.Event{
				Type:      audit.EventRequestDeduplicated,
				SessionID: event.SessionID,
				Kind:      event.Kind,
				Source:    event.SourceChannel,
			})
			return
		}
		// A different request of the same kind is already awaiting a
		// decision. First one wins; the newcomer is dropped.
		log.Warn().
			Str("pendingSessionId", existing.event.SessionID).
			Str("sessionId", event.SessionID).
			Str("kind", string(event.Kind)).
			Msg("coordinator: dropping request, same kind already pending")
		audit.Log(audit.Event{
			Type:      audit.EventRequestDropped,
			SessionID: event.SessionID,
			Kind:      event.Kind,
			Source:    event.SourceChannel,
		})
		return
	}

	if current := c.store.Current(); current != nil && current.Params.SessionID == event.SessionID {
		// Late duplicate of a request that was already accepted.
		audit.Log(audit.Event{
			Type:      audit.EventRequestDeduplicated,
			SessionID: event.SessionID,
			Kind:      event.Kind,
			Source:    event.SourceChannel,
		})
		return
	}

	switch event.Kind {
	case model.KindCallRequest:
		if chat, ok := c.pending[model.KindChatRequest]; ok {
			c.supersedeLocked(ctx, chat)
		}
	case model.KindChatRequest:
		if call, ok := c.pending[model.KindCallRequest]; ok {
			log.Info().
				Str("sessionId", event.SessionID).
				Str("pendingCallId", call.event.SessionID).
				Msg("coordinator: chat request dropped, call request pending")
			audit.Log(audit.Event{
				Type:      audit.EventRequestDropped,
				SessionID: event.SessionID,
				Kind:      event.Kind,
				Source:    event.SourceChannel,
			})
			return
		}
	default:
		log.Debug().Str("kind", string(event.Kind)).Msg("coordinator: unknown request kind")
		return
	}

	c.admitLocked(ctx, event)
}

// admitLocked creates the pending entry, arms the expiry timer, and routes
// the surfacing decision: in-app modal when foregrounded, system
// notification otherwise. Never both.
func (c *Coordinator) admitLocked(ctx context.Context, event *model.RequestEvent) {
	sessionID := event.SessionID
	entry := &pendingRequest{event: event}
	entry.timer = time.AfterFunc(c.expiry, func() {
		c.Expire(context.Background(), sessionID)
	})
	c.pending[event.Kind] = entry

	audit.Log(audit.Event{
		Type:      audit.EventRequestReceived,
		SessionID: sessionID,
		Kind:      event.Kind,
		Source:    event.SourceChannel,
	})

	if c.appState.Foreground() {
		c.listener.ShowRequest(event)
	} else {
		c.presenter.PresentRequest(ctx, event)
	}
}

// supersedeLocked terminates a pending chat request because a call request
// arrived. Silent from the astrologer's point of view: the chat prompt is
// dismissed with no notice, and the requester gets a best-effort decline.
func (c *Coordinator) supersedeLocked(ctx context.Context, chat *pendingRequest) {
	chat.timer.Stop()
	delete(c.pending, model.KindChatRequest)

	sessionID := chat.event.SessionID
	c.presenter.Cancel(ctx, sessionID)
	c.listener.DismissRequest(sessionID)
	c.notifyDecline(sessionID, ReasonSuperseded)

	audit.Log(audit.Event{
		Type:      audit.EventRequestSuperseded,
		SessionID: sessionID,
		Kind:      model.KindChatRequest,
	})
}

// Accept commits a pending request into the active session. Idempotent: a
// second accept for an already-accepted or already-cleared id is a no-op.
// Safe to call before OnRequestEvent materialized the pending entry; in
// that case the fallback event (the original request payload echoed back
// with the notification action) supplies the session params.
func (c *Coordinator) Accept(ctx context.Context, sessionID string, fallback *model.RequestEvent) {
	defer c.guard("accept")
	if sessionID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if current := c.store.Current(); current != nil && current.Params.SessionID == sessionID {
		log.Debug().Str("sessionId", sessionID).Msg("coordinator: duplicate accept ignored")
		return
	}

	event := c.clearPendingLocked(sessionID)
	if event == nil {
		if fallback == nil || fallback.SessionID != sessionID {
			// Nothing pending and no usable payload: per the idempotence
			// contract this is a no-op, not an error.
			c.presenter.Cancel(ctx, sessionID)
			log.Warn().Str("sessionId", sessionID).Msg("coordinator: accept with no pending request")
			return
		}
		event = fallback
	}

	c.presenter.Cancel(ctx, sessionID)
	c.store.Start(ctx, event.SessionType(), event.SessionParams())

	route := RouteLiveChat
	if event.Kind == model.KindCallRequest {
		route = RouteLiveCall
	}
	if err := c.navigator.Navigate(ctx, route, event.SessionParams()); err != nil {
		log.Error().Err(err).
			Str("sessionId", sessionID).
			Str("route", route).
			Msg("coordinator: navigation failed")
	}

	audit.Log(audit.Event{
		Type:      audit.EventRequestAccepted,
		SessionID: sessionID,
		Kind:      event.Kind,
		Details:   map[string]interface{}{"state": string(model.StateAccepted)},
	})
}

// Reject declines a pending request. Idempotent; the requester is told
// best-effort.
func (c *Coordinator) Reject(ctx context.Context, sessionID string) {
	defer c.guard("reject")
	c.terminate(ctx, sessionID, model.StateRejected)
}

// Expire is invoked by the mirrored 45-second timer or by the presenter's
// own notification timeout. Same effects as Reject, tagged for analytics.
func (c *Coordinator) Expire(ctx context.Context, sessionID string) {
	defer c.guard("expire")
	c.terminate(ctx, sessionID, model.StateExpired)
}

// Cancel handles the requester withdrawing their own request. No decline
// notice is sent back.
func (c *Coordinator) Cancel(ctx context.Context, sessionID string) {
	defer c.guard("cancel")
	c.terminate(ctx, sessionID, model.StateSuperseded)
}

func (c *Coordinator) terminate(ctx context.Context, sessionID string, state model.RequestState) {
	if sessionID == "" || !state.Terminal() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.presenter.Cancel(ctx, sessionID)

	event := c.clearPendingLocked(sessionID)
	if event == nil {
		log.Debug().
			Str("sessionId", sessionID).
			Str("state", string(state)).
			Msg("coordinator: terminal transition with no pending request")
		return
	}

	c.listener.DismissRequest(sessionID)

	details := map[string]interface{}{"state": string(state)}
	switch state {
	case model.StateRejected:
		c.notifyDecline(sessionID, ReasonRejected)
		audit.Log(audit.Event{Type: audit.EventRequestRejected, SessionID: sessionID, Kind: event.Kind, Details: details})
	case model.StateExpired:
		c.notifyDecline(sessionID, ReasonExpired)
		audit.Log(audit.Event{Type: audit.EventRequestExpired, SessionID: sessionID, Kind: event.Kind, Details: details})
	default:
		audit.Log(audit.Event{Type: audit.EventRequestCancelled, SessionID: sessionID, Kind: event.Kind, Details: details})
	}
}

// clearPendingLocked removes the pending entry for sessionID, stopping its
// expiry timer, and returns its event. Nil when nothing was pending.
func (c *Coordinator) clearPendingLocked(sessionID string) *model.RequestEvent {
	for kind, entry := range c.pending {
		if entry.event.SessionID == sessionID {
			entry.timer.Stop()
			delete(c.pending, kind)
			return entry.event
		}
	}
	return nil
}

// StartSession records a session the astrologer initiated themselves (as a
// caller), bypassing the request flow.
func (c *Coordinator) StartSession(ctx context.Context, sessionType model.SessionType, params model.SessionParams) {
	defer c.guard("startSession")

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Start(ctx, sessionType, params)
	audit.Log(audit.Event{Type: audit.EventSessionStarted, SessionID: params.SessionID})
}

// EndSession clears the active session when the user hangs up or the chat
// closes.
func (c *Coordinator) EndSession(ctx context.Context) {
	defer c.guard("endSession")

	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.store.Current()
	c.store.End(ctx)
	if current != nil {
		audit.Log(audit.Event{Type: audit.EventSessionEnded, SessionID: current.Params.SessionID})
	}
}

// Pending returns the pending event of the given kind, or nil. Used by the
// shell snapshot and by tests.
func (c *Coordinator) Pending(kind model.RequestKind) *model.RequestEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.pending[kind]; ok {
		return entry.event
	}
	return nil
}

// notifyDecline fires the best-effort requester notice without holding up
// the caller.
func (c *Coordinator) notifyDecline(sessionID, reason string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.notifier.Decline(ctx, sessionID, reason); err != nil {
			log.Warn().Err(err).
				Str("sessionId", sessionID).
				Str("reason", reason).
				Msg("coordinator: decline notice failed")
		}
	}()
}

// guard keeps a panic in any handler from unwinding into the host's event
// delivery; a crash there kills the pipeline for the process lifetime.
func (c *Coordinator) guard(op string) {
	if r := recover(); r != nil {
		log.Error().Interface("panic", r).Str("op", op).Msg("coordinator: recovered panic")
	}
}
