package ingress

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/astroline/consult-agent-go/internal/errors"
	"github.com/astroline/consult-agent-go/internal/model"
	"github.com/astroline/consult-agent-go/internal/util"
)

// Payload is the duck-typed event body as delivered by the push layer or
// the socket stream. Everything inward of this package works on the typed
// event models; anything that fails conversion is dropped at the boundary.
type Payload map[string]any

// Event type discriminators seen on the wire. Call requests come in
// variants ("call_request", "video_call_request", ...), so matching is by
// substring for that family only.
const (
	TypeChatRequest      = "chat_request"
	TypeChatMessage      = "chat_message"
	TypeRequestAccepted  = "request_accepted"
	TypeRequestCancelled = "request_cancelled"
	TypeGift             = "gift"
)

// Kind classifies a raw payload type value.
type Kind int

const (
	KindUnknown Kind = iota
	KindCallRequest
	KindChatRequest
	KindChatMessage
	KindAccepted
	KindCancelled
	KindGift
)

func Classify(p Payload) Kind {
	t, _ := p["type"].(string)
	switch {
	case t == TypeChatRequest:
		return KindChatRequest
	case strings.Contains(t, "call_request"):
		return KindCallRequest
	case t == TypeChatMessage:
		return KindChatMessage
	case t == TypeRequestAccepted:
		return KindAccepted
	case t == TypeRequestCancelled:
		return KindCancelled
	case t == TypeGift:
		return KindGift
	default:
		return KindUnknown
	}
}

func (p Payload) str(key string) string {
	v, _ := p[key].(string)
	return v
}

// SessionID extracts the deduplication key; empty means unusable payload.
func (p Payload) SessionID() string {
	return util.NormalizeSessionID(p.str("sessionId"))
}

func (p Payload) rate() float64 {
	switch v := p["rate"].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// NormalizeRequest converts a request payload into the typed RequestEvent.
func NormalizeRequest(p Payload, source model.SourceChannel) (*model.RequestEvent, error) {
	kind := Classify(p)
	if kind != KindCallRequest && kind != KindChatRequest {
		return nil, apperrors.UnknownEventType(p.str("type"))
	}

	sessionID := p.SessionID()
	if sessionID == "" {
		return nil, apperrors.MissingSessionID()
	}

	event := &model.RequestEvent{
		SessionID:     sessionID,
		Rate:          p.rate(),
		ReceivedAt:    time.Now(),
		SourceChannel: source,
		Requester: model.Requester{
			UserID:      p.str("userId"),
			DisplayName: p.str("userName"),
			AvatarURL:   p.str("avatarUrl"),
		},
	}

	if kind == KindCallRequest {
		event.Kind = model.KindCallRequest
		callType := p.str("callType")
		if !util.IsValidEnum(callType, []string{string(model.CallTypeAudio), string(model.CallTypeVideo)}) {
			return nil, apperrors.InvalidPayload("unsupported callType " + callType)
		}
		event.CallType = model.CallType(callType)
		if event.CallType == "" {
			// The type discriminator itself carries the variant when the
			// explicit field is absent.
			if strings.Contains(p.str("type"), "video") {
				event.CallType = model.CallTypeVideo
			} else {
				event.CallType = model.CallTypeAudio
			}
		}
	} else {
		event.Kind = model.KindChatRequest
	}

	if event.Requester.DisplayName == "" {
		event.Requester.DisplayName = "Unknown user"
	}

	return event, nil
}

// NormalizeMessage converts a chat-message payload.
func NormalizeMessage(p Payload) (*model.MessageEvent, error) {
	sessionID := p.SessionID()
	if sessionID == "" {
		return nil, apperrors.MissingSessionID()
	}

	sender := p.str("userName")
	if sender == "" {
		sender = "New message"
	}

	return &model.MessageEvent{
		SessionID:  sessionID,
		SenderName: sender,
		Preview:    p.str("message"),
		ReceivedAt: time.Now(),
	}, nil
}

// NormalizeGift converts a gift payload. Gifts without an id get one so
// the shell can track dismissal.
func NormalizeGift(p Payload) (*model.GiftNotification, error) {
	gift := &model.GiftNotification{
		ID:         p.str("giftId"),
		SenderName: p.str("userName"),
		GiftName:   p.str("giftName"),
		ReceivedAt: time.Now(),
	}
	if gift.GiftName == "" {
		return nil, apperrors.InvalidPayload("gift has no giftName")
	}
	if gift.ID == "" {
		gift.ID = uuid.NewString()
	}
	return gift, nil
}
