package navigator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	redisclient "github.com/astroline/consult-agent-go/internal/redis"
)

// Command is one navigate(routeName, params) invocation, serialized onto
// the device's nav channel for the shell to execute.
type Command struct {
	Route  string `json:"route"`
	Params any    `json:"params,omitempty"`
}

// RedisNavigator publishes navigation commands to the device shell over
// the owner's nav channel.
type RedisNavigator struct {
	redis   *redisclient.Client
	ownerID string
}

func NewRedisNavigator(redis *redisclient.Client, ownerID string) *RedisNavigator {
	return &RedisNavigator{redis: redis, ownerID: ownerID}
}

func (n *RedisNavigator) Navigate(ctx context.Context, route string, params any) error {
	data, err := json.Marshal(Command{Route: route, Params: params})
	if err != nil {
		return fmt.Errorf("marshal nav command: %w", err)
	}

	channel := redisclient.NavChannel(n.ownerID)
	if err := n.redis.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish nav command: %w", err)
	}

	log.Debug().Str("route", route).Msg("navigation command published")
	return nil
}
