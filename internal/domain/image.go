package domain

import "time"

// Image is a node of an upload tree. A root has no parent and no rule,
// a thumbnail has both.
type Image struct {
	ID         string
	OwnerID    string
	FilePath   string
	ParentID   string
	RuleID     int64
	RuleHeight int
	Format     ImageFormat
	CreatedAt  time.Time
}

func (i *Image) IsRoot() bool {
	return i.ParentID == ""
}

func (i *Image) HasFile() bool {
	return i.FilePath != ""
}

// ImageTree is a root image with its thumbnails materialized.
type ImageTree struct {
	Root     Image
	Children []Image
}

// ImageURL is a single entry of the URL mapping returned to clients.
type ImageURL struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatGIF  ImageFormat = "gif"
	FormatWebP ImageFormat = "webp"
	FormatBMP  ImageFormat = "bmp"
	FormatTIFF ImageFormat = "tiff"
)

func (f ImageFormat) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

const (
	PathPrefixPhotos = "photos/"
	URLKeyOriginal   = "original"
)

const (
	DefaultMaxUploadSize = 32 << 20
	DefaultJPEGQuality   = 85
	DefaultListLimit     = 50
	MaxListLimit         = 200

	// MaxSourcePixels caps width*height of a decoded source, about 200 MiB
	// as RGBA.
	MaxSourcePixels = 50_000_000
)
