package transform

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Named transforms that can be requested by name over the API and the command line,
// in the form 'name' or 'name:arg'. The parsed form is also the key, so a chain
// parsed from the same strings always derives the same BitmapKey.
//
//	grayscale
//	invert
//	fliph, flipv
//	rotate:90 (also 180, 270)
//	blur:<sigma>
//	sharpen:<sigma>
//	brightness:<percent>  (-100..100)
//	contrast:<percent>    (-100..100)

// Parse returns the named transform for the passed expression
func Parse(expr string) (Transform, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(expr), ":")
	name = strings.ToLower(name)
	switch name {
	case "grayscale", "invert", "fliph", "flipv":
		if hasArg {
			return nil, fmt.Errorf("transform %q takes no argument", name)
		}
		return effect(name, func(img image.Image) image.Image {
			switch name {
			case "grayscale":
				return imaging.Grayscale(img)
			case "invert":
				return imaging.Invert(img)
			case "fliph":
				return imaging.FlipH(img)
			}
			return imaging.FlipV(img)
		}), nil
	case "rotate":
		switch arg {
		case "90":
			return effect("rotate:90", func(img image.Image) image.Image { return imaging.Rotate90(img) }), nil
		case "180":
			return effect("rotate:180", func(img image.Image) image.Image { return imaging.Rotate180(img) }), nil
		case "270":
			return effect("rotate:270", func(img image.Image) image.Image { return imaging.Rotate270(img) }), nil
		}
		return nil, fmt.Errorf("rotate supports 90, 180 or 270, got %q", arg)
	case "blur", "sharpen":
		sigma, err := strconv.ParseFloat(arg, 64)
		if err != nil || sigma <= 0 {
			return nil, fmt.Errorf("transform %q needs a positive sigma, got %q", name, arg)
		}
		key := name + ":" + strconv.FormatFloat(sigma, 'f', -1, 64)
		if name == "blur" {
			return effect(key, func(img image.Image) image.Image { return imaging.Blur(img, sigma) }), nil
		}
		return effect(key, func(img image.Image) image.Image { return imaging.Sharpen(img, sigma) }), nil
	case "brightness", "contrast":
		pct, err := strconv.ParseFloat(arg, 64)
		if err != nil || pct < -100 || pct > 100 {
			return nil, fmt.Errorf("transform %q needs a percentage between -100 and 100, got %q", name, arg)
		}
		key := name + ":" + strconv.FormatFloat(pct, 'f', -1, 64)
		if name == "brightness" {
			return effect(key, func(img image.Image) image.Image { return imaging.AdjustBrightness(img, pct) }), nil
		}
		return effect(key, func(img image.Image) image.Image { return imaging.AdjustContrast(img, pct) }), nil
	}
	return nil, fmt.Errorf("unknown transform: %q", expr)
}

// ParseAll parses a list of expressions into a chain, preserving order
func ParseAll(exprs []string) ([]Transform, error) {
	chain := make([]Transform, 0, len(exprs))
	for _, expr := range exprs {
		t, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		chain = append(chain, t)
	}
	return chain, nil
}

func effect(key string, fn func(image.Image) image.Image) Func {
	return Func{
		Name: key,
		Fn: func(img image.Image) (image.Image, error) {
			return fn(img), nil
		},
	}
}
