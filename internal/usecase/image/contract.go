package image

import (
	"context"
	"image"

	"img-thumbs/internal/domain"
	"img-thumbs/internal/worker"
)

type imageRepository interface {
	CreateTree(ctx context.Context, root *domain.Image, children []domain.Image) error
	ListRoots(ctx context.Context, ownerID string, limit, offset int) ([]domain.Image, error)
	ListChildren(ctx context.Context, parentIDs []string) ([]domain.Image, error)
}

type planRepository interface {
	GetUserPlan(ctx context.Context, userID string) (*domain.ThumbPlan, error)
}

type fileStorage interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

type thumbnailGenerator interface {
	Probe(src []byte) (domain.ImageFormat, int, int, error)
	Decode(src []byte) (image.Image, error)
	Render(img image.Image, format domain.ImageFormat, targetHeight int) ([]byte, error)
}

type jobRunner interface {
	Run(ctx context.Context, jobs []worker.Job) []error
}

type eventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}
