package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

// PubSubManager publishes executed swaps to redis channels and lets
// operators follow them.
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// SwapChannels lists the channels a swap event is published on.
func SwapChannels(swap *models.SwapEvent) []string {
	channels := []string{
		constants.PubSubChannelSwaps,
		constants.PubSubChannelPoolPrefix + swap.PoolID,
	}
	if !swap.Success {
		channels = append(channels, constants.PubSubChannelSwapsFailed)
	}
	return channels
}

// PublishSwap sends swap to every channel in one pipeline round trip.
func (p *PubSubManager) PublishSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	for _, channel := range SwapChannels(swap) {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish swap: %w", err)
	}
	return nil
}

// Subscribe calls handler for each swap on channel until ctx ends.
// Channel names ending in * are pattern subscriptions.
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler func(*models.SwapEvent)) error {
	var sub *redis.PubSub
	if len(channel) > 0 && channel[len(channel)-1] == '*' {
		sub = p.client.PSubscribe(ctx, channel)
	} else {
		sub = p.client.Subscribe(ctx, channel)
	}
	defer sub.Close()

	// Wait for the subscription confirmation so setup errors surface here.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("Subscribed to swap channel")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var swap models.SwapEvent
			if err := json.Unmarshal([]byte(msg.Payload), &swap); err != nil {
				p.logger.WithError(err).Warn("Error unmarshaling swap")
				continue
			}
			handler(&swap)
		}
	}
}
