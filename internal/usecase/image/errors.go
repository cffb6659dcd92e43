package image

import (
	"fmt"

	"img-thumbs/internal/domain"
)

var (
	ErrEmptyFile   = fmt.Errorf("%w: file is empty", domain.ErrValidation)
	ErrNoPlan      = fmt.Errorf("%w: user has no thumbnail plan", domain.ErrConfiguration)
	ErrInvalidPage = fmt.Errorf("%w: invalid pagination", domain.ErrValidation)
)
