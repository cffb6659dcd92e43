package domain

import "errors"

// Error kinds. Usecase errors wrap one of these so the HTTP layer can map
// them to a status code; anything else is an internal failure.
var (
	ErrValidation       = errors.New("validation error")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrConfiguration    = errors.New("configuration error")
	ErrDecode           = errors.New("decode error")
	ErrEncode           = errors.New("encode error")
	ErrUnauthenticated  = errors.New("unauthenticated")
)
