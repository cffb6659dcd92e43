package link

import (
	"context"

	"img-thumbs/internal/domain"
)

type imageRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Image, error)
}

type planRepository interface {
	GetUserPlan(ctx context.Context, userID string) (*domain.ThumbPlan, error)
}

type linkRepository interface {
	Create(ctx context.Context, link *domain.TempLink) error
	GetByID(ctx context.Context, id string) (*domain.TempLink, error)
}

type fileLocator interface {
	URL(path string) string
}

type eventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}
