package ingress

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/background"
	"github.com/astroline/consult-agent-go/internal/coordinator"
	"github.com/astroline/consult-agent-go/internal/model"
	"github.com/astroline/consult-agent-go/internal/shell"
)

// Dispatcher routes normalized events to the execution context that should
// handle them. Requests reaching a foregrounded shell go to the full
// coordinator; while the app is backgrounded or gone they take the
// restricted background path, which only touches the presenter. Malformed
// and unknown payloads are dropped with a log line; nothing propagates out
// of Dispatch.
type Dispatcher struct {
	coord *coordinator.Coordinator
	shell *shell.Controller
	bg    *background.Handler
}

func NewDispatcher(coord *coordinator.Coordinator, sh *shell.Controller, bg *background.Handler) *Dispatcher {
	return &Dispatcher{coord: coord, shell: sh, bg: bg}
}

func (d *Dispatcher) Dispatch(ctx context.Context, p Payload, source model.SourceChannel) {
	switch Classify(p) {
	case KindCallRequest, KindChatRequest:
		event, err := NormalizeRequest(p, source)
		if err != nil {
			log.Warn().Err(err).Str("source", string(source)).Msg("dropping malformed request payload")
			return
		}
		if d.shell.Foreground() {
			d.coord.OnRequestEvent(ctx, event)
		} else {
			d.bg.HandleRequest(ctx, event)
		}

	case KindChatMessage:
		if d.shell.Foreground() {
			// The in-app chat screen renders its own messages.
			log.Debug().Str("sessionId", p.SessionID()).Msg("chat message in foreground, no notification")
			return
		}
		event, err := NormalizeMessage(p)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed message payload")
			return
		}
		d.bg.HandleMessage(ctx, event)

	case KindAccepted:
		d.coord.Accept(ctx, p.SessionID(), d.fallbackEvent(p, source))

	case KindCancelled:
		d.coord.Cancel(ctx, p.SessionID())
		if !d.shell.Foreground() {
			d.bg.HandleCancel(ctx, p.SessionID())
		}

	case KindGift:
		gift, err := NormalizeGift(p)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed gift payload")
			return
		}
		d.shell.ShowGift(gift)

	default:
		// Forward-compatible ignore: unknown types are a no-op, not an error.
		log.Debug().Str("type", p.str("type")).Msg("ignoring unknown event type")
	}
}

// fallbackEvent recovers the original request from an accept payload, so
// an accept that raced ahead of its request event can still start the
// session with full params.
func (d *Dispatcher) fallbackEvent(p Payload, source model.SourceChannel) *model.RequestEvent {
	raw, ok := p["request"].(map[string]any)
	if !ok {
		return nil
	}
	event, err := NormalizeRequest(Payload(raw), source)
	if err != nil {
		log.Debug().Err(err).Msg("accept payload carried unusable request echo")
		return nil
	}
	return event
}
