package domain

import "time"

// TempLink is a time-bounded reference to one image. It is never updated
// after creation; expiry is evaluated when the link is resolved.
type TempLink struct {
	ID         string
	ImageID    string
	Expiration time.Time
	CreatedAt  time.Time
}

// Expired reports whether the link is no longer usable at now.
// A link is expired at the exact expiration instant.
func (l *TempLink) Expired(now time.Time) bool {
	return !now.Before(l.Expiration)
}

const TempLinkPathPrefix = "/tmp/"
