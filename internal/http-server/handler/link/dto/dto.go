package dto

import "time"

type IssueRequest struct {
	ImageID string `validate:"required,utf8"`
	Exp     int
}

type IssueResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
