package decode

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/mock"
)

func TestDecodePNG(t *testing.T) {
	info, err := Decode(bytes.NewReader(mock.PNG(30, 20, color.White)), true)
	if err != nil {
		t.FailNow()
	}
	if len(info.Frames) != 1 || info.Bounds().Dx() != 30 || info.Bounds().Dy() != 20 {
		t.Fail()
	}
}

func TestDecodeAnimatedGif(t *testing.T) {
	b := mock.AnimatedGIF(10, 10, 3)
	info, err := Decode(bytes.NewReader(b), true)
	if err != nil || len(info.Frames) != 3 || len(info.Delays) != 3 {
		t.FailNow()
	}
	if info.Delays[2] != 15 {
		t.Fail()
	}
	// not animated means first frame only
	info, err = Decode(bytes.NewReader(b), false)
	if err != nil || len(info.Frames) != 1 || info.Delays != nil {
		t.Fail()
	}
}

func TestDecodeCorrupt(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not an image")), true); err == nil {
		t.Fail()
	}
	if _, err := Decode(bytes.NewReader(nil), true); err == nil {
		t.Fail()
	}
}

func TestDecodeFileSampled(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	f := filepath.Join(td, "big.png")
	os.WriteFile(f, mock.PNG(400, 100, color.Black), 0644)
	info, err := DecodeFile(f, true, 200)
	if err != nil {
		t.FailNow()
	}
	if info.Bounds().Dx() != 200 || info.Bounds().Dy() != 50 || info.SourceFile != f {
		t.Fail()
	}
	// smaller than the max is left alone
	info, err = DecodeFile(f, true, 1000)
	if err != nil || info.Bounds().Dx() != 400 {
		t.Fail()
	}
	if _, err := DecodeFile(filepath.Join(td, "missing.png"), true, 0); !errors.Is(err, os.ErrNotExist) {
		t.Fail()
	}
}

func TestEncode(t *testing.T) {
	still := bitmap.Info{Frames: []image.Image{mock.Solid(8, 6, color.White)}}
	b, ct, err := EncodeBytes(still)
	if err != nil || ct != ContentTypePNG {
		t.FailNow()
	}
	info, err := Decode(bytes.NewReader(b), true)
	if err != nil || info.Bounds().Dx() != 8 || info.Bounds().Dy() != 6 {
		t.Fail()
	}

	anim, err := Decode(bytes.NewReader(mock.AnimatedGIF(10, 10, 3)), true)
	if err != nil {
		t.FailNow()
	}
	b, ct, err = EncodeBytes(anim)
	if err != nil || ct != ContentTypeGIF {
		t.FailNow()
	}
	info, err = Decode(bytes.NewReader(b), true)
	if err != nil || len(info.Frames) != 3 {
		t.Fail()
	}

	if _, _, err := EncodeBytes(bitmap.Info{}); err == nil {
		t.Fail()
	}
}
