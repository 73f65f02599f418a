package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amirb2607/PortfolioHub/pkg/logger"
)

const changeChannelPrefix = "portfolio_changes:"

// RedisNotifier publishes portfolio change notifications over redis
// pub/sub, one channel per user.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a redis-backed notifier
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

var _ Notifier = (*RedisNotifier)(nil)

func changeChannel(userID string) string {
	return changeChannelPrefix + userID
}

// Notify publishes a change notification for the user
func (n *RedisNotifier) Notify(ctx context.Context, userID string, reason ChangeReason) error {
	payload, err := json.Marshal(Notification{
		UserID: userID,
		Reason: reason,
		At:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := n.client.Publish(ctx, changeChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Subscribe delivers the user's change notifications until cancel is
// called or ctx ends. Malformed messages are logged and skipped.
func (n *RedisNotifier) Subscribe(ctx context.Context, userID string) (<-chan Notification, func(), error) {
	sub := n.client.Subscribe(ctx, changeChannel(userID))

	// Confirm the subscription before handing out the channel
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Notification)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var notif Notification
				if err := json.Unmarshal([]byte(msg.Payload), &notif); err != nil {
					logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed change notification")
					continue
				}
				select {
				case out <- notif:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	unsubscribe := func() {
		cancel()
		sub.Close()
	}
	return out, unsubscribe, nil
}
