package ingress

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/model"
	redisclient "github.com/astroline/consult-agent-go/internal/redis"
)

// SocketListener is the in-app socket channel: a redis subscription on the
// owner's event stream. Payloads are the same duck-typed envelopes the
// push layer carries, so everything funnels through the one dispatcher.
type SocketListener struct {
	redis      *redisclient.Client
	dispatcher *Dispatcher
	ownerID    string
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewSocketListener(redis *redisclient.Client, dispatcher *Dispatcher, ownerID string) *SocketListener {
	ctx, cancel := context.WithCancel(context.Background())
	return &SocketListener{
		redis:      redis,
		dispatcher: dispatcher,
		ownerID:    ownerID,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (l *SocketListener) Start() {
	go l.run()
	log.Info().Str("channel", redisclient.EventChannel(l.ownerID)).Msg("socket listener started")
}

func (l *SocketListener) Stop() {
	l.cancel()
	<-l.done
	log.Info().Msg("socket listener stopped")
}

func (l *SocketListener) run() {
	defer close(l.done)

	channel := redisclient.EventChannel(l.ownerID)
	pubsub := l.redis.Subscribe(l.ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-l.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var payload Payload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				log.Warn().Err(err).Msg("socket: failed to unmarshal event, skipping")
				continue
			}

			l.dispatcher.Dispatch(l.ctx, payload, model.SourceSocket)
		}
	}
}
