// Package media downsizes uploaded profile pictures.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultSize   = 150
	JPEGQuality   = 82
	WebPQuality   = 70
	FormatJPEG    = "jpeg"
	FormatWebP    = "webp"
	maxSourcePx   = 8192
	maxSourceSize = 10 << 20
)

var placeholderGray = color.RGBA{R: 0xc8, G: 0xcc, B: 0xd2, A: 0xff}

var (
	// ErrInvalidImage is returned for content that is not a decodable jpeg, png or webp.
	ErrInvalidImage = errors.New("invalid image")
	// ErrImageTooLarge is returned when the upload exceeds the accepted byte or pixel size.
	ErrImageTooLarge = errors.New("image too large")
)

// Thumbnail is an encoded, downsized image.
type Thumbnail struct {
	Data        []byte
	Ext         string
	ContentType string
	Width       int
	Height      int
}

// Thumbnailer fits images into a square box and re-encodes them.
type Thumbnailer struct {
	size   int
	format string
}

// NewThumbnailer returns a Thumbnailer for a size x size box. Unknown formats fall back to JPEG.
func NewThumbnailer(size int, format string) *Thumbnailer {
	if size <= 0 {
		size = DefaultSize
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatWebP {
		format = FormatJPEG
	}
	return &Thumbnailer{size: size, format: format}
}

// Fit validates content, scales it down to the box keeping its aspect ratio
// and encodes it in the configured format. Images already inside the box are
// re-encoded without scaling.
func (t *Thumbnailer) Fit(content []byte, declaredType string) (*Thumbnail, error) {
	if len(content) == 0 {
		return nil, ErrInvalidImage
	}
	if len(content) > maxSourceSize {
		return nil, ErrImageTooLarge
	}

	detected := http.DetectContentType(content)
	if !isAllowedImageMIME(detected) {
		return nil, fmt.Errorf("%w: detected %s", ErrInvalidImage, detected)
	}
	if provided := normalizeContentType(declaredType); strings.HasPrefix(provided, "image/") && !isAllowedImageMIME(provided) {
		return nil, fmt.Errorf("%w: declared %s", ErrInvalidImage, provided)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width > maxSourcePx || cfg.Height > maxSourcePx {
		return nil, ErrImageTooLarge
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	fitted := resizeToFit(decoded, t.size, t.size)
	b := fitted.Bounds()
	out := &Thumbnail{Width: b.Dx(), Height: b.Dy()}

	switch t.format {
	case FormatWebP:
		out.Data, err = encodeWebP(fitted, WebPQuality)
		out.Ext, out.ContentType = "webp", "image/webp"
	default:
		out.Data, err = encodeJPEG(fitted, JPEGQuality)
		out.Ext, out.ContentType = "jpg", "image/jpeg"
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// Placeholder returns a neutral square image in the configured format, used
// for users who never uploaded a profile picture.
func (t *Thumbnailer) Placeholder() (*Thumbnail, error) {
	img := image.NewRGBA(image.Rect(0, 0, t.size, t.size))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(placeholderGray), image.Point{}, xdraw.Src)

	out := &Thumbnail{Width: t.size, Height: t.size}
	var err error
	switch t.format {
	case FormatWebP:
		out.Data, err = encodeWebP(img, WebPQuality)
		out.Ext, out.ContentType = "webp", "image/webp"
	default:
		out.Data, err = encodeJPEG(img, JPEGQuality)
		out.Ext, out.ContentType = "jpg", "image/jpeg"
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
