package link

import (
	"fmt"

	"img-thumbs/internal/domain"
)

var (
	ErrImageNotFound        = fmt.Errorf("%w: image not found", domain.ErrNotFound)
	ErrImageHasNoFile       = fmt.Errorf("%w: image has no stored file", domain.ErrNotFound)
	ErrLinkNotFound         = fmt.Errorf("%w: link not found", domain.ErrNotFound)
	ErrLinkExpired          = fmt.Errorf("%w: link expired", domain.ErrNotFound)
	ErrExpirationOutOfRange = fmt.Errorf("%w: expiration out of range", domain.ErrValidation)
	ErrInvalidToken         = fmt.Errorf("%w: invalid link token", domain.ErrValidation)
	ErrNotOwner             = fmt.Errorf("%w: image belongs to another user", domain.ErrPermissionDenied)
	ErrLinksNotAllowed      = fmt.Errorf("%w: plan does not allow expiring links", domain.ErrPermissionDenied)
	ErrInvalidOptions       = fmt.Errorf("%w: invalid link options", domain.ErrConfiguration)
)
