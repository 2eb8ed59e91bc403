package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// EventChannel is the inbound socket stream for one astrologer: call/chat
// requests, cancels, gifts and chat messages published by the platform.
func EventChannel(ownerID string) string {
	return fmt.Sprintf("consult:events:%s", ownerID)
}

// NavChannel carries navigation commands back to the device shell.
func NavChannel(ownerID string) string {
	return fmt.Sprintf("consult:nav:%s", ownerID)
}
