package shell

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/model"
)

// Overlay is what the shell is currently rendering on top of the app, if
// anything. At most one is visible; precedence is Call > Chat > Gift.
type Overlay string

const (
	OverlayNone      Overlay = ""
	OverlayCallModal Overlay = "incoming-call-modal"
	OverlayChatModal Overlay = "incoming-chat-modal"
	OverlayGift      Overlay = "gift-notification"
)

// Live screen route names as reported by the device's navigation tree.
const (
	ScreenLiveCall = "live-call"
	ScreenLiveChat = "live-chat"
)

// Snapshot is the UI-facing view of the shell: which overlay to render,
// with what request, and whether the return-to-session bar is shown.
type Snapshot struct {
	Foreground    bool                    `json:"foreground"`
	CurrentScreen string                  `json:"currentScreen"`
	Overlay       Overlay                 `json:"overlay"`
	Request       *model.RequestEvent     `json:"request,omitempty"`
	Gift          *model.GiftNotification `json:"gift,omitempty"`
	ShowReturnBar bool                    `json:"showReturnBar"`
	Session       *model.ActiveSession    `json:"session,omitempty"`
}

// SessionSource is the slice of the session store the shell reads.
type SessionSource interface {
	Current() *model.ActiveSession
}

// Controller wires coordinator decisions to concrete UI state and tracks
// the app lifecycle (foreground/background) plus the currently visible
// screen. It implements coordinator.DecisionListener and
// coordinator.AppState.
type Controller struct {
	sessions SessionSource

	mu         sync.RWMutex
	foreground bool
	screen     string
	request    *model.RequestEvent
	gift       *model.GiftNotification
}

func NewController(sessions SessionSource) *Controller {
	return &Controller{sessions: sessions}
}

// Foreground reports whether the app shell is in the foreground.
func (c *Controller) Foreground() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.foreground
}

// SetAppState records a lifecycle transition reported by the device shell.
func (c *Controller) SetAppState(foreground bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.foreground = foreground
	log.Debug().Bool("foreground", foreground).Msg("shell: app state changed")
}

// SetRouteState records the current navigation state. The payload is the
// possibly-nested route tree; the deepest active route is what counts.
func (c *Controller) SetRouteState(root *RouteState) {
	screen := ResolveDeepestRoute(root)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.screen = screen
}

// ShowRequest renders the in-app modal for a pending request. A call
// request replaces a visible chat prompt; a chat request never replaces a
// visible call prompt (the coordinator already enforces this, the check
// here only guards the precedence invariant).
func (c *Controller) ShowRequest(event *model.RequestEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.request != nil && c.request.Kind == model.KindCallRequest && event.Kind == model.KindChatRequest {
		log.Warn().
			Str("sessionId", event.SessionID).
			Msg("shell: refusing to replace call modal with chat modal")
		return
	}

	c.request = event
	c.gift = nil
}

// DismissRequest clears the modal for one session id, if it is the one
// being shown.
func (c *Controller) DismissRequest(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.request != nil && c.request.SessionID == sessionID {
		c.request = nil
	}
}

// ShowGift surfaces a transient gift notification. Dropped when a request
// modal is up: gifts are ephemeral by contract and never queued.
func (c *Controller) ShowGift(gift *model.GiftNotification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.request != nil {
		log.Debug().Str("giftId", gift.ID).Msg("shell: dropping gift, request modal visible")
		return
	}
	c.gift = gift
}

// DismissGift clears the gift toast after display.
func (c *Controller) DismissGift() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gift = nil
}

// ShouldShowReturnBar reports whether the return-to-session affordance is
// shown: there is an active session and the user is not already on its
// live screen.
func (c *Controller) ShouldShowReturnBar() bool {
	session := c.sessions.Current()
	if session == nil {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.screen != liveScreenFor(session.Type)
}

func liveScreenFor(t model.SessionType) string {
	if t == model.SessionTypeCall {
		return ScreenLiveCall
	}
	return ScreenLiveChat
}

// Snapshot returns the current UI state for the device shell to render.
func (c *Controller) Snapshot() Snapshot {
	session := c.sessions.Current()

	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Foreground:    c.foreground,
		CurrentScreen: c.screen,
		Session:       session,
	}

	switch {
	case c.request != nil && c.request.Kind == model.KindCallRequest:
		snap.Overlay = OverlayCallModal
		snap.Request = c.request
	case c.request != nil:
		snap.Overlay = OverlayChatModal
		snap.Request = c.request
	case c.gift != nil:
		snap.Overlay = OverlayGift
		snap.Gift = c.gift
	}

	if session != nil && c.screen != liveScreenFor(session.Type) {
		snap.ShowReturnBar = true
	}

	return snap
}
