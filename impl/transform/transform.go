package transform

import (
	"fmt"
	"image"
	"strings"
)

// Transform maps a bitmap to a bitmap. The Key must change whenever the output
// would change.
type Transform interface {
	Key() string
	Apply(img image.Image) (image.Image, error)
}

// ScaleMode determines how Resize fits the source into the target dimensions
type ScaleMode int

const (
	// FitXY stretches the source to exactly the target dimensions
	FitXY ScaleMode = iota
	// CenterCrop scales the source to cover the target and crops the overflow evenly
	CenterCrop
	// CenterInside scales the source down to fit within the target, keeping the aspect ratio
	CenterInside
)

func (m ScaleMode) String() string {
	switch m {
	case FitXY:
		return "fitXY"
	case CenterCrop:
		return "centerCrop"
	case CenterInside:
		return "centerInside"
	}
	return fmt.Sprintf("ScaleMode(%d)", int(m))
}

// ParseScaleMode parses the string form of a ScaleMode, case-insensitive. The empty
// string is FitXY.
func ParseScaleMode(s string) (ScaleMode, error) {
	switch strings.ToLower(s) {
	case "", "fitxy":
		return FitXY, nil
	case "centercrop":
		return CenterCrop, nil
	case "centerinside":
		return CenterInside, nil
	}
	return FitXY, fmt.Errorf("unknown scale mode: %q", s)
}

// Func adapts a named function to the Transform interface. The name is the key so
// it must identify the function's behavior including any parameters.
type Func struct {
	Name string
	Fn   func(image.Image) (image.Image, error)
}

func (f Func) Key() string {
	return f.Name
}

func (f Func) Apply(img image.Image) (image.Image, error) {
	return f.Fn(img)
}
