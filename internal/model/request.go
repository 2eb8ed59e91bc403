package model

import "time"

type Requester struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// RequestEvent is the normalized form of an incoming ask for attention,
// regardless of which delivery channel carried it. SessionID plus Kind is
// the deduplication key: two events sharing both refer to the same
// real-world request even when they arrive over different channels.
type RequestEvent struct {
	Kind          RequestKind   `json:"kind"`
	SessionID     string        `json:"sessionId"`
	CallType      CallType      `json:"callType,omitempty"`
	Requester     Requester     `json:"requester"`
	Rate          float64       `json:"rate"`
	ReceivedAt    time.Time     `json:"receivedAt"`
	SourceChannel SourceChannel `json:"sourceChannel"`
}

// SessionType maps the request kind to the session type an accept would
// bring into existence.
func (e *RequestEvent) SessionType() SessionType {
	if e.Kind == KindCallRequest {
		return SessionTypeCall
	}
	return SessionTypeChat
}

// SessionParams carries what the accepted session needs to re-enter its
// live screen.
func (e *RequestEvent) SessionParams() SessionParams {
	return SessionParams{
		SessionID: e.SessionID,
		PeerID:    e.Requester.UserID,
		PeerName:  e.Requester.DisplayName,
		CallType:  e.CallType,
		Rate:      e.Rate,
	}
}

// MessageEvent is a chat message delivered while the app is not showing
// that chat. It never competes with request events for the screen.
type MessageEvent struct {
	SessionID  string    `json:"sessionId"`
	SenderName string    `json:"senderName"`
	Preview    string    `json:"preview"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// GiftNotification is a transient in-session event. It is never persisted
// and is dropped rather than queued when a request modal is up.
type GiftNotification struct {
	ID         string    `json:"id"`
	SenderName string    `json:"senderName"`
	GiftName   string    `json:"giftName"`
	ReceivedAt time.Time `json:"receivedAt"`
}
