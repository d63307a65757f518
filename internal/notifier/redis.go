package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rocketscienceinc/damas-backend/internal/entity"
)

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		client: client,
	}
}

func (that *RedisPublisher) Notify(ctx context.Context, snapshot entity.MatchSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("could not marshal snapshot: %w", err)
	}

	if err = that.client.Publish(ctx, Channel(snapshot.ID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	return nil
}

type RedisSubscriber struct {
	logger *zap.Logger
	client *redis.Client
}

func NewRedisSubscriber(logger *zap.Logger, client *redis.Client) *RedisSubscriber {
	return &RedisSubscriber{
		logger: logger.With(zap.String("component", "redis_subscriber")),
		client: client,
	}
}

// Subscribe streams the snapshots published for matchID until ctx is done.
// The returned channel is closed when the subscription ends.
func (that *RedisSubscriber) Subscribe(ctx context.Context, matchID string) (<-chan entity.MatchSnapshot, error) {
	log := that.logger.With(zap.String("method", "Subscribe"), zap.String("match_id", matchID))

	pubsub := that.client.Subscribe(ctx, Channel(matchID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan entity.MatchSnapshot)

	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				log.Warn("failed to close subscription", zap.Error(err))
			}
		}()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-messages:
				if !ok {
					return
				}

				var snapshot entity.MatchSnapshot
				if err := json.Unmarshal([]byte(message.Payload), &snapshot); err != nil {
					log.Error("failed to unmarshal snapshot", zap.Error(err))
					continue
				}

				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
