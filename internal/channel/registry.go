package channel

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Channel ids referenced by the presenter when it posts notifications.
const (
	UrgentRequests = "urgent_requests"
	Messages       = "messages"
	Default        = "default"
)

type Importance string

const (
	ImportanceMax  Importance = "max"
	ImportanceHigh Importance = "high"
)

// Channel describes one notification delivery channel on the device.
type Channel struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Importance       Importance `json:"importance"`
	Sound            string     `json:"sound,omitempty"`
	VibrationPattern []int64    `json:"vibrationPattern,omitempty"`
	BypassDND        bool       `json:"bypassDnd,omitempty"`
}

// Platform is the slice of the device bridge the registry needs.
type Platform interface {
	EnsureChannel(ctx context.Context, ch Channel) error
}

func definitions() []Channel {
	return []Channel{
		{
			ID:               UrgentRequests,
			Name:             "Consultation Requests",
			Importance:       ImportanceMax,
			Sound:            "incoming_request",
			VibrationPattern: []int64{0, 400, 200, 400, 200, 400},
			BypassDND:        true,
		},
		{
			ID:         Messages,
			Name:       "Messages",
			Importance: ImportanceHigh,
			Sound:      "soft_tone",
		},
	}
}

// Registry declares the notification channels the agent depends on.
// EnsureChannels is idempotent and safe to call from any process state,
// including a cold-start background handler.
type Registry struct {
	platform Platform

	mu        sync.Mutex
	confirmed map[string]bool
}

func NewRegistry(platform Platform) *Registry {
	return &Registry{
		platform:  platform,
		confirmed: make(map[string]bool),
	}
}

// EnsureChannels creates (or confirms) every channel. A failure on one
// channel is logged and does not stop the others; the presenter falls back
// to the default channel for anything left unconfirmed.
func (r *Registry) EnsureChannels(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range definitions() {
		if r.confirmed[ch.ID] {
			continue
		}
		if err := r.platform.EnsureChannel(ctx, ch); err != nil {
			log.Warn().Err(err).Str("channel", ch.ID).Msg("failed to ensure notification channel")
			continue
		}
		r.confirmed[ch.ID] = true
		log.Debug().Str("channel", ch.ID).Msg("notification channel ensured")
	}
}

// ChannelFor returns the channel id to use for a given preferred channel,
// falling back to the platform default when the preferred one could not be
// created.
func (r *Registry) ChannelFor(preferred string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.confirmed[preferred] {
		return preferred
	}
	return Default
}
