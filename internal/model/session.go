package model

import (
	"encoding/json"
	"time"
)

// SessionParams is the free-form payload needed to re-enter a live screen.
type SessionParams struct {
	SessionID string   `json:"sessionId"`
	PeerID    string   `json:"peerId"`
	PeerName  string   `json:"peerName"`
	CallType  CallType `json:"callType,omitempty"`
	Rate      float64  `json:"rate,omitempty"`
}

// ActiveSession is the one durable "currently live" interaction. At most
// one exists at a time; starting a new one fully overwrites the prior.
type ActiveSession struct {
	Type   SessionType   `json:"type"`
	Params SessionParams `json:"params"`
}

// SessionStateRow is the persisted shape of an ActiveSession, one row per
// owner (the astrologer this agent runs for).
type SessionStateRow struct {
	OwnerID     string          `db:"owner_id"`
	SessionType SessionType     `db:"session_type"`
	Params      json.RawMessage `db:"params"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Session converts the stored row back into the in-memory form.
func (r *SessionStateRow) Session() (*ActiveSession, error) {
	var params SessionParams
	if err := json.Unmarshal(r.Params, &params); err != nil {
		return nil, err
	}
	return &ActiveSession{Type: r.SessionType, Params: params}, nil
}
