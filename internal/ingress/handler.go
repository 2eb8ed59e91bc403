package ingress

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/coordinator"
	apperrors "github.com/astroline/consult-agent-go/internal/errors"
	"github.com/astroline/consult-agent-go/internal/httputil"
	"github.com/astroline/consult-agent-go/internal/model"
	"github.com/astroline/consult-agent-go/internal/presenter"
	"github.com/astroline/consult-agent-go/internal/shell"
)

// Handler is the HTTP surface the device shell and the push bridge talk
// to. Every endpoint acknowledges with 200/202 even when the payload was
// dropped: delivery callbacks must never see errors they would retry into
// duplicate prompts.
type Handler struct {
	dispatcher *Dispatcher
	coord      *coordinator.Coordinator
	shell      *shell.Controller
}

func NewHandler(dispatcher *Dispatcher, coord *coordinator.Coordinator, sh *shell.Controller) *Handler {
	return &Handler{dispatcher: dispatcher, coord: coord, shell: sh}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/push/data", h.PushData)
	r.Post("/notifications/action", h.NotificationAction)
	r.Post("/app/state", h.AppState)
	r.Get("/session", h.Session)
	r.Post("/session/start", h.SessionStart)
	r.Post("/session/end", h.SessionEnd)
	return r
}

// PushData receives a data-only push message relayed by the push bridge.
func (h *Handler) PushData(w http.ResponseWriter, r *http.Request) {
	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Warn().Err(err).Msg("invalid push data body")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "dropped"})
		return
	}

	h.dispatcher.Dispatch(r.Context(), payload, model.SourcePushData)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type notificationActionRequest struct {
	Action    string  `json:"action"`
	SessionID string  `json:"sessionId"`
	Request   Payload `json:"request,omitempty"`
}

// NotificationAction receives Accept/Reject/press callbacks from system
// notifications. The original request payload is echoed back where the
// platform supports it, so an action can land before (or without) the
// matching request event.
func (h *Handler) NotificationAction(w http.ResponseWriter, r *http.Request) {
	var req notificationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid notification action body")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "dropped"})
		return
	}

	if req.SessionID == "" {
		log.Warn().Str("action", req.Action).Msg("notification action with no session id")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "dropped"})
		return
	}

	ctx := r.Context()

	var fallback *model.RequestEvent
	if req.Request != nil {
		if event, err := NormalizeRequest(req.Request, model.SourceNotificationAction); err == nil {
			fallback = event
		}
	}

	switch req.Action {
	case presenter.ActionAccept:
		h.coord.Accept(ctx, req.SessionID, fallback)
	case presenter.ActionReject:
		h.coord.Reject(ctx, req.SessionID)
	default:
		// Default press opens the app on the request. Re-admitting through
		// the coordinator is dedup-safe and materializes the pending entry
		// if the background path never did.
		if fallback != nil {
			fallback.SourceChannel = model.SourcePushTap
			h.coord.OnRequestEvent(ctx, fallback)
		} else {
			log.Debug().Str("sessionId", req.SessionID).Msg("notification press with no request echo")
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type appStateRequest struct {
	Foreground bool              `json:"foreground"`
	RouteState *shell.RouteState `json:"routeState,omitempty"`
}

// AppState records lifecycle and navigation transitions from the shell.
func (h *Handler) AppState(w http.ResponseWriter, r *http.Request) {
	var req appStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.shell.SetAppState(req.Foreground)
	if req.RouteState != nil {
		h.shell.SetRouteState(req.RouteState)
	}

	httputil.WriteJSON(w, http.StatusOK, h.shell.Snapshot())
}

// Session returns the shell snapshot: active session, overlay to render,
// and whether the return-to-session bar should show.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.shell.Snapshot())
}

type sessionStartRequest struct {
	Type   model.SessionType   `json:"type"`
	Params model.SessionParams `json:"params"`
}

// SessionStart records a session the astrologer initiated as the caller.
func (h *Handler) SessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Type != model.SessionTypeChat && req.Type != model.SessionTypeCall {
		httputil.WriteError(w, apperrors.InvalidPayload("type must be chat or call"))
		return
	}
	if req.Params.SessionID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("params.sessionId"))
		return
	}

	h.coord.StartSession(r.Context(), req.Type, req.Params)
	httputil.WriteJSON(w, http.StatusOK, h.shell.Snapshot())
}

// SessionEnd clears the active session (hang up / chat closed).
func (h *Handler) SessionEnd(w http.ResponseWriter, r *http.Request) {
	h.coord.EndSession(r.Context())
	httputil.WriteJSON(w, http.StatusOK, h.shell.Snapshot())
}
