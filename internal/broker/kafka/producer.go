package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"img-thumbs/internal/domain"

	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type EventProducer struct {
	producer *wbkafka.Producer
	topic    string
	retries  retry.Strategy
	logger   *zlog.Zerolog
}

func NewEventProducer(brokers []string, topic string, retries retry.Strategy, logger *zlog.Zerolog) *EventProducer {
	return &EventProducer{
		producer: wbkafka.NewProducer(brokers, topic),
		topic:    topic,
		retries:  retries,
		logger:   logger,
	}
}

// Publish sends event keyed by image id so events of one tree stay ordered.
func (p *EventProducer) Publish(ctx context.Context, event *domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.producer.SendWithRetry(ctx, p.retries, []byte(event.ImageID), value); err != nil {
		return fmt.Errorf("failed to send %s event: %w", event.Type, err)
	}

	p.logger.Debug().
		Str("topic", p.topic).
		Str("type", string(event.Type)).
		Str("image_id", event.ImageID).
		Msg("Event published")
	return nil
}

func (p *EventProducer) Close() error {
	return p.producer.Close()
}
