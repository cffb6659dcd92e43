package dto

import "img-thumbs/internal/domain"

type ListRequest struct {
	Limit  int `validate:"gte=0,lte=200"`
	Offset int `validate:"gte=0"`
}

// ImageResponse is one uploaded image with the URLs of its stored variants,
// keyed by "original" or the thumbnail height.
type ImageResponse struct {
	ID   string                     `json:"id"`
	URLs map[string]domain.ImageURL `json:"urls"`
}
