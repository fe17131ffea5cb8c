// Package decode turns bytes into a bitmap.Info and back. Decoding is format
// sniffing over the registered image decoders (png, jpeg, gif, webp, bmp). Animated
// gifs keep all of their frames only when requested; otherwise the first frame is
// the bitmap. Encoding writes png for still bitmaps and gif for animated ones so
// that transformed results can be persisted to the disk cache and read back with
// the same decoder.
package decode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/aceeric/imgcache/impl/bitmap"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	ContentTypePNG = "image/png"
	ContentTypeGIF = "image/gif"
	// defaultDelay is the gif frame delay in 100ths of a second when none is known
	defaultDelay = 10
)

var gifMagic = []byte("GIF8")

// Decode decodes the passed stream. If 'animateGif' is true and the stream is a gif
// with more than one frame, all frames are returned, composited onto the logical
// screen so that each frame is a complete bitmap.
func Decode(r io.Reader, animateGif bool) (bitmap.Info, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(len(gifMagic)); err == nil && bytes.Equal(magic, gifMagic) && animateGif {
		return decodeGif(br)
	}
	img, _, err := image.Decode(br)
	if err != nil {
		return bitmap.Info{}, err
	}
	return bitmap.Info{Frames: []image.Image{img}}, nil
}

// DecodeFile decodes the passed file. If 'maxDim' is greater than zero, every frame is
// sampled down so that neither side exceeds it. The aspect ratio is kept and frames
// are never scaled up. None of the registered decoders can decode at a reduced scale,
// so each frame is decoded at full resolution and then sampled: 'maxDim' bounds the
// memory the result holds, not the peak memory of the decode.
func DecodeFile(path string, animateGif bool, maxDim int) (bitmap.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return bitmap.Info{}, err
	}
	defer f.Close()
	info, err := Decode(f, animateGif)
	if err != nil {
		return bitmap.Info{}, err
	}
	info.SourceFile = path
	if maxDim > 0 {
		for i, frame := range info.Frames {
			b := frame.Bounds()
			if b.Dx() > maxDim || b.Dy() > maxDim {
				info.Frames[i] = resize.Thumbnail(uint(maxDim), uint(maxDim), frame, resize.Bilinear)
			}
		}
	}
	return info, nil
}

// decodeGif decodes every frame, honoring the frame disposal methods
func decodeGif(r io.Reader) (bitmap.Info, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return bitmap.Info{}, err
	}
	if len(g.Image) == 0 {
		return bitmap.Info{}, errors.New("gif has no frames")
	}
	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		screen = g.Image[0].Bounds()
	}
	canvas := image.NewNRGBA(screen)
	info := bitmap.Info{
		Frames: make([]image.Image, 0, len(g.Image)),
		Delays: make([]int, 0, len(g.Image)),
	}
	for i, frame := range g.Image {
		var previous *image.NRGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = cloneNRGBA(canvas)
		}
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		info.Frames = append(info.Frames, cloneNRGBA(canvas))
		delay := defaultDelay
		if i < len(g.Delay) && g.Delay[i] > 0 {
			delay = g.Delay[i]
		}
		info.Delays = append(info.Delays, delay)
		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return info, nil
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// Encode writes the passed Info to 'w' and returns the content type written. More
// than one frame is written as an animated gif, otherwise png.
func Encode(w io.Writer, info bitmap.Info) (string, error) {
	if info.IsEmpty() {
		return "", errors.New("no bitmap to encode")
	}
	if len(info.Frames) == 1 {
		return ContentTypePNG, png.Encode(w, info.Frames[0])
	}
	g := &gif.GIF{}
	for i, frame := range info.Frames {
		p := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(p, frame.Bounds(), frame, frame.Bounds().Min)
		g.Image = append(g.Image, p)
		delay := defaultDelay
		if i < len(info.Delays) {
			delay = info.Delays[i]
		}
		g.Delay = append(g.Delay, delay)
	}
	if err := gif.EncodeAll(w, g); err != nil {
		return "", fmt.Errorf("gif encode: %w", err)
	}
	return ContentTypeGIF, nil
}

// EncodeBytes is Encode into a byte slice
func EncodeBytes(info bitmap.Info) ([]byte, string, error) {
	var buf bytes.Buffer
	ct, err := Encode(&buf, info)
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), ct, nil
}
