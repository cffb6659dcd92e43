package link

import (
	"context"

	linkuc "img-thumbs/internal/usecase/link"
)

type linkUsecase interface {
	Issue(ctx context.Context, requesterID, imageID string, expSeconds int) (*linkuc.IssuedLink, error)
	Resolve(ctx context.Context, token string) (string, error)
}
