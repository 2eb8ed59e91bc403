package model

type RequestKind string

const (
	KindCallRequest RequestKind = "call_request"
	KindChatRequest RequestKind = "chat_request"
)

type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

// SourceChannel records which delivery path carried an event. It is used
// for logging and deduplication diagnostics only, never for precedence.
type SourceChannel string

const (
	SourcePushData           SourceChannel = "push-data"
	SourcePushTap            SourceChannel = "push-notification-tap"
	SourceNotificationAction SourceChannel = "local-notification-action"
	SourceSocket             SourceChannel = "socket"
)

type RequestState string

const (
	StatePending    RequestState = "pending"
	StateAccepted   RequestState = "accepted"
	StateRejected   RequestState = "rejected"
	StateExpired    RequestState = "expired"
	StateSuperseded RequestState = "superseded"
)

// Terminal reports whether the state removes the pending entry.
func (s RequestState) Terminal() bool {
	return s != StatePending
}

type SessionType string

const (
	SessionTypeChat SessionType = "chat"
	SessionTypeCall SessionType = "call"
)
