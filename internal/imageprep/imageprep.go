// Package imageprep normalizes uploaded page images before they are sent for
// analysis: decode any supported format, flatten onto white, downscale and
// re-encode as JPEG.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrUnsupportedImage = errors.New("imageprep: unsupported image format")
	ErrEmptyImage       = errors.New("imageprep: empty image")
	ErrImageTooLarge    = errors.New("imageprep: image has too many pixels")
)

// maxPixels guards against decompression bombs. It is checked from the
// header before the image is decoded.
const maxPixels = 100_000_000

// Options controls the output image.
type Options struct {
	// MaxDimension bounds the longest side of the output, in pixels.
	MaxDimension int
	// Quality is the JPEG quality, 1-100.
	Quality int
}

// DefaultOptions returns a 1500px bound at quality 85.
func DefaultOptions() Options {
	return Options{MaxDimension: 1500, Quality: 85}
}

// Prepared is a re-encoded image ready for upload.
type Prepared struct {
	Data         []byte
	MediaType    string
	Width        int
	Height       int
	SourceFormat string
	Resized      bool
}

// Prepare decodes data and re-encodes it as a bounded JPEG.
func Prepare(data []byte, opts Options) (Prepared, error) {
	if len(data) == 0 {
		return Prepared{}, ErrEmptyImage
	}
	def := DefaultOptions()
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = def.MaxDimension
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Prepared{}, decodeError(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Prepared{}, ErrEmptyImage
	}
	if cfg.Width*cfg.Height > maxPixels {
		return Prepared{}, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Prepared{}, decodeError(err)
	}

	src := img.Bounds()
	w, h := fit(src.Dx(), src.Dy(), opts.MaxDimension)
	resized := w != src.Dx() || h != src.Dy()

	// JPEG has no alpha, so transparent regions are composited onto white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if resized {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	} else {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return Prepared{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Prepared{
		Data:         buf.Bytes(),
		MediaType:    "image/jpeg",
		Width:        w,
		Height:       h,
		SourceFormat: format,
		Resized:      resized,
	}, nil
}

func decodeError(err error) error {
	if errors.Is(err, image.ErrFormat) {
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return fmt.Errorf("decode image: %w", err)
}

// fit scales w x h down so the longer side is at most limit, keeping the
// aspect ratio. Sizes already within bounds are returned unchanged.
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		h = h * limit / w
		w = limit
	} else {
		w = w * limit / h
		h = limit
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImage reports whether filename has an image extension Prepare can read.
func IsImage(filename string) bool {
	return imageExts[strings.ToLower(filepath.Ext(filename))]
}
