package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"img-thumbs/internal/domain"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Thumbnailer derives fixed-height thumbnails. It holds no mutable state and
// is safe for concurrent use.
type Thumbnailer struct {
	jpegQuality int
	kernel      *xdraw.Kernel
}

func NewThumbnailer() *Thumbnailer {
	return &Thumbnailer{
		jpegQuality: domain.DefaultJPEGQuality,
		kernel:      xdraw.CatmullRom,
	}
}

// Probe reads the header of src and reports its format and dimensions.
// Sources larger than domain.MaxSourcePixels are rejected before any pixel
// data is decoded.
func (t *Thumbnailer) Probe(src []byte) (domain.ImageFormat, int, int, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: failed to read image header: %w", domain.ErrDecode, err)
	}

	format, ok := formatFromName(name)
	if !ok {
		return "", 0, 0, fmt.Errorf("%w: unsupported image format %q", domain.ErrDecode, name)
	}

	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return "", 0, 0, err
	}

	return format, cfg.Width, cfg.Height, nil
}

// Decode probes src and then decodes the full raster.
func (t *Thumbnailer) Decode(src []byte) (image.Image, error) {
	if _, _, _, err := t.Probe(src); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %w", domain.ErrDecode, err)
	}
	return img, nil
}

// Render scales an already decoded image to targetHeight and encodes it in
// format. img is only read, so one image may be rendered concurrently.
func (t *Thumbnailer) Render(img image.Image, format domain.ImageFormat, targetHeight int) ([]byte, error) {
	bounds := img.Bounds()
	if targetHeight <= 0 {
		return nil, fmt.Errorf("%w: target height must be positive, got %d", domain.ErrValidation, targetHeight)
	}
	if bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: source height must be positive, got %d", domain.ErrValidation, bounds.Dy())
	}

	return t.render(img, format, TargetWidth(bounds.Dx(), bounds.Dy(), targetHeight), targetHeight)
}

// Generate decodes src and renders one thumbnail of targetHeight.
func (t *Thumbnailer) Generate(src []byte, format domain.ImageFormat, srcWidth, srcHeight, targetHeight int) ([]byte, error) {
	if targetHeight <= 0 {
		return nil, fmt.Errorf("%w: target height must be positive, got %d", domain.ErrValidation, targetHeight)
	}
	if srcHeight <= 0 {
		return nil, fmt.Errorf("%w: source height must be positive, got %d", domain.ErrValidation, srcHeight)
	}

	img, err := t.Decode(src)
	if err != nil {
		return nil, err
	}

	return t.render(img, format, TargetWidth(srcWidth, srcHeight, targetHeight), targetHeight)
}

func (t *Thumbnailer) render(img image.Image, format domain.ImageFormat, width, height int) ([]byte, error) {
	// A zero-width raster cannot be encoded by any supported codec.
	if width < 1 {
		width = 1
	}

	thumbnail := t.scale(img, width, height)

	buf := new(bytes.Buffer)
	if err := t.encode(buf, thumbnail, format); err != nil {
		return nil, fmt.Errorf("%w: failed to encode %s thumbnail: %w", domain.ErrEncode, format, err)
	}

	return buf.Bytes(), nil
}

func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: image has no pixels (%dx%d)", domain.ErrDecode, width, height)
	}
	if int64(width)*int64(height) > domain.MaxSourcePixels {
		return fmt.Errorf("%w: image of %dx%d exceeds %d pixels", domain.ErrValidation, width, height, domain.MaxSourcePixels)
	}
	return nil
}

// TargetWidth is floor(srcWidth * targetHeight / srcHeight).
func TargetWidth(srcWidth, srcHeight, targetHeight int) int {
	return int(int64(srcWidth) * int64(targetHeight) / int64(srcHeight))
}

func (t *Thumbnailer) scale(img image.Image, width, height int) image.Image {
	dst := newCanvas(img, image.Rect(0, 0, width, height))
	t.kernel.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// newCanvas allocates a destination with the same pixel model as src.
func newCanvas(src image.Image, r image.Rectangle) xdraw.Image {
	switch s := src.(type) {
	case *image.Gray:
		return image.NewGray(r)
	case *image.Gray16:
		return image.NewGray16(r)
	case *image.NRGBA:
		return image.NewNRGBA(r)
	case *image.NRGBA64:
		return image.NewNRGBA64(r)
	case *image.RGBA64:
		return image.NewRGBA64(r)
	case *image.CMYK:
		return image.NewCMYK(r)
	case *image.Paletted:
		return image.NewPaletted(r, s.Palette)
	default:
		return image.NewRGBA(r)
	}
}

func (t *Thumbnailer) encode(w io.Writer, img image.Image, format domain.ImageFormat) error {
	switch format {
	case domain.FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: t.jpegQuality})
	case domain.FormatPNG:
		return png.Encode(w, img)
	case domain.FormatGIF:
		return gif.Encode(w, img, nil)
	case domain.FormatBMP:
		return bmp.Encode(w, img)
	case domain.FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("no encoder for format %q", format)
	}
}

func formatFromName(name string) (domain.ImageFormat, bool) {
	switch name {
	case "jpeg":
		return domain.FormatJPEG, true
	case "png":
		return domain.FormatPNG, true
	case "gif":
		return domain.FormatGIF, true
	case "webp":
		return domain.FormatWebP, true
	case "bmp":
		return domain.FormatBMP, true
	case "tiff":
		return domain.FormatTIFF, true
	default:
		return "", false
	}
}
