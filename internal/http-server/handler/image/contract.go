package image

import (
	"context"

	"img-thumbs/internal/domain"
)

type imageUsecase interface {
	CreateRootImage(ctx context.Context, ownerID string, data []byte, filename string) (*domain.ImageTree, error)
	ListRootImages(ctx context.Context, ownerID string, limit, offset int) ([]domain.ImageTree, error)
	URLs(tree *domain.ImageTree) map[string]domain.ImageURL
}
