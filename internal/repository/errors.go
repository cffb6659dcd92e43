package repository

import "errors"

var (
	ErrImageNotFound       = errors.New("image not found")
	ErrRuleNotFound        = errors.New("thumb rule not found")
	ErrPlanNotFound        = errors.New("thumb plan not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserPlanNotFound    = errors.New("user has no thumb plan")
	ErrTempLinkNotFound    = errors.New("temp link not found")
	ErrFileNotFound        = errors.New("file not found")
	ErrRuleInUse           = errors.New("thumb rule is referenced by generated thumbnails")
	ErrStorageError        = errors.New("storage error")
	ErrDuplicateKey        = errors.New("duplicate key violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
)
