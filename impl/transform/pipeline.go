package transform

import (
	"fmt"
	"image"
	"strings"

	"github.com/aceeric/imgcache/impl/bitmap"
)

// Keys concatenates the key fragments of the chain in declared order
func Keys(chain []Transform) string {
	var sb strings.Builder
	for _, t := range chain {
		sb.WriteString(t.Key())
	}
	return sb.String()
}

// Apply runs the chain in declared order over every frame of the passed Info and
// returns a new Info. The passed Info is not modified. The first failing transform
// aborts the whole chain: no partial result is returned.
func Apply(info bitmap.Info, chain []Transform) (bitmap.Info, error) {
	if info.IsEmpty() {
		return bitmap.Info{}, fmt.Errorf("no bitmap to transform")
	}
	frames := make([]image.Image, len(info.Frames))
	copy(frames, info.Frames)
	for _, t := range chain {
		for i, frame := range frames {
			out, err := t.Apply(frame)
			if err != nil {
				return bitmap.Info{}, fmt.Errorf("transform %q: %w", t.Key(), err)
			}
			if out == nil {
				return bitmap.Info{}, fmt.Errorf("transform %q returned no bitmap", t.Key())
			}
			frames[i] = out
		}
	}
	out := info
	out.Frames = frames
	if info.Delays != nil {
		out.Delays = append([]int(nil), info.Delays...)
	}
	return out, nil
}
