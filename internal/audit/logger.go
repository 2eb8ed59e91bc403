package audit

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/model"
)

type EventType string

const (
	EventRequestReceived     EventType = "request_received"
	EventRequestDeduplicated EventType = "request_deduplicated"
	EventRequestAccepted     EventType = "request_accepted"
	EventRequestRejected     EventType = "request_rejected"
	EventRequestExpired      EventType = "request_expired"
	EventRequestSuperseded   EventType = "request_superseded"
	EventRequestCancelled    EventType = "request_cancelled"
	EventRequestDropped      EventType = "request_dropped"
	EventSessionStarted      EventType = "session_started"
	EventSessionEnded        EventType = "session_ended"
	EventSessionRestored     EventType = "session_restored"
	EventNotificationBlocked EventType = "notification_blocked"
)

type Event struct {
	Type      EventType
	SessionID string
	Kind      model.RequestKind
	Source    model.SourceChannel
	Details   map[string]interface{}
}

// Log emits one analytics record. Consumers downstream key on event_type
// and sessionId; everything else is advisory.
func Log(event Event) {
	logger := log.With().
		Str("audit", "consult").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.SessionID != "" {
		logger = logger.With().Str("session_id", event.SessionID).Logger()
	}
	if event.Kind != "" {
		logger = logger.With().Str("kind", string(event.Kind)).Logger()
	}
	if event.Source != "" {
		logger = logger.With().Str("source", string(event.Source)).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("consult audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case float64:
		return e.Float64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}
