package broker

import (
	"context"

	"img-thumbs/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
	Close() error
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *domain.Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
