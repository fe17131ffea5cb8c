package transform

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

const (
	// DefaultMaxDimension is the largest resize width or height unless configured
	DefaultMaxDimension = 8192
	// MaxDimensionLimit is the most a configured maximum can be raised to
	MaxDimensionLimit = 16384
)

var maxDimension atomic.Int64

func init() {
	maxDimension.Store(DefaultMaxDimension)
}

// ErrTooLarge is returned by Resize when the output would exceed the maximum dimension
var ErrTooLarge = errors.New("resize exceeds the maximum dimension")

// SetMaxDimension sets the largest width or height a resize may produce. Zero or less
// restores the default and values over MaxDimensionLimit are clamped to it.
func SetMaxDimension(n int) {
	switch {
	case n <= 0:
		n = DefaultMaxDimension
	case n > MaxDimensionLimit:
		n = MaxDimensionLimit
	}
	maxDimension.Store(int64(n))
}

// MaxDimension is the largest width or height a resize may produce
func MaxDimension() int {
	return int(maxDimension.Load())
}

// Resize is the implicit trailing transform added to a chain when a request has
// resize dimensions. A zero width or height preserves the aspect ratio using the
// other dimension, in which case the mode does not matter.
type Resize struct {
	Width  int
	Height int
	Mode   ScaleMode
}

// NewResize returns a Resize transform
func NewResize(width, height int, mode ScaleMode) Resize {
	return Resize{Width: width, Height: height, Mode: mode}
}

func (r Resize) Key() string {
	return fmt.Sprintf("resize:%dx%d:%s", r.Width, r.Height, r.Mode)
}

func (r Resize) Apply(img image.Image) (image.Image, error) {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw <= 0 || sh <= 0 {
		return nil, errors.New("cannot resize an empty bitmap")
	}
	w, h := max(r.Width, 0), max(r.Height, 0)
	if w == 0 && h == 0 {
		return img, nil
	}
	md := MaxDimension()
	if w > md || h > md {
		return nil, ErrTooLarge
	}
	if w == 0 || h == 0 {
		// the free side follows the aspect ratio and must fit as well
		if w == 0 && math.Round(float64(sw)*float64(h)/float64(sh)) > float64(md) ||
			h == 0 && math.Round(float64(sh)*float64(w)/float64(sw)) > float64(md) {
			return nil, ErrTooLarge
		}
		return resize.Resize(uint(w), uint(h), img, resize.Bilinear), nil
	}
	switch r.Mode {
	case CenterCrop:
		return centerCrop(img, sw, sh, w, h, md)
	case CenterInside:
		scale := math.Min(math.Min(float64(w)/float64(sw), float64(h)/float64(sh)), 1)
		if scale == 1 {
			return img, nil
		}
		tw := max(int(math.Round(float64(sw)*scale)), 1)
		th := max(int(math.Round(float64(sh)*scale)), 1)
		return resize.Resize(uint(tw), uint(th), img, resize.Bilinear), nil
	default:
		return resize.Resize(uint(w), uint(h), img, resize.Bilinear), nil
	}
}

// centerCrop scales so the source covers w x h, then cuts out the centered w x h window.
// The scaled intermediate of a very wide or tall source is capped at four times the
// pixels of a md x md bitmap.
func centerCrop(img image.Image, sw, sh, w, h, md int) (image.Image, error) {
	scale := math.Max(float64(w)/float64(sw), float64(h)/float64(sh))
	tw := max(int(math.Ceil(float64(sw)*scale)), w)
	th := max(int(math.Ceil(float64(sh)*scale)), h)
	if float64(tw)*float64(th) > 4*float64(md)*float64(md) {
		return nil, ErrTooLarge
	}
	scaled := resize.Resize(uint(tw), uint(th), img, resize.Bilinear)
	return imaging.CropCenter(scaled, w, h), nil
}
