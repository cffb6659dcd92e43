package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"img-thumbs/internal/domain"

	kafka "github.com/segmentio/kafka-go"
	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type messageSource interface {
	StartConsuming(ctx context.Context, out chan<- kafka.Message, strategy retry.Strategy)
	Commit(ctx context.Context, msg kafka.Message) error
	Close() error
}

// EventConsumer reads domain events back from the events topic.
type EventConsumer struct {
	source  messageSource
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewEventConsumer(brokers []string, topic, groupID string, retries retry.Strategy, logger *zlog.Zerolog) *EventConsumer {
	return &EventConsumer{
		source:  wbkafka.NewConsumer(brokers, topic, groupID),
		retries: retries,
		logger:  logger,
	}
}

// Consume calls handle for every event until ctx is done or handle fails.
// A message is committed only after handle succeeds. Malformed messages are
// logged and committed so they do not block the group. Consume returns only
// after the fetch loop has stopped.
func (c *EventConsumer) Consume(ctx context.Context, handle func(*domain.Event) error) error {
	ctx, cancel := context.WithCancel(ctx)

	msgs := make(chan kafka.Message)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		c.source.StartConsuming(ctx, msgs, c.retries)
	}()

	defer func() {
		cancel()
		// Release a send the fetch loop may be blocked on.
		var pending <-chan kafka.Message = msgs
		for {
			select {
			case <-stopped:
				return
			case _, ok := <-pending:
				if !ok {
					pending = nil
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			event, err := DecodeEvent(msg.Value)
			if err != nil {
				c.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping malformed event")
			} else if err := handle(event); err != nil {
				return err
			}

			if err := c.source.Commit(ctx, msg); err != nil {
				return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
			}
		}
	}
}

func (c *EventConsumer) Close() error {
	return c.source.Close()
}

func DecodeEvent(value []byte) (*domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.Type == "" || event.ImageID == "" {
		return nil, errors.New("event is missing type or image id")
	}
	return &event, nil
}
