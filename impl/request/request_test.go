package request

import (
	"errors"
	"image"
	"testing"

	"github.com/aceeric/imgcache/impl/errs"
	"github.com/aceeric/imgcache/impl/transform"
)

var identity = transform.Func{Name: "identity", Fn: func(img image.Image) (image.Image, error) { return img, nil }}

func TestDefaults(t *testing.T) {
	req, err := Load("http://foo.io/a.png").Build()
	if err != nil {
		t.FailNow()
	}
	if req.Method != "GET" || !req.AnimateGif || req.ScaleMode != transform.FitXY || req.HasResize() || req.NoCache || req.Mipmap {
		t.Fail()
	}
	req, _ = LoadMethod("post", "http://foo.io/a.png").Build()
	if req.Method != "POST" {
		t.Fail()
	}
}

func TestConfigurationConflicts(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{"resize after mipmap", Load("u").Mipmap().Resize(10, 10)},
		{"mipmap after resize", Load("u").Resize(10, 10).Mipmap()},
		{"center crop without resize", Load("u").CenterCrop()},
		{"center inside without resize", Load("u").CenterInside()},
		{"center crop with one dimension", Load("u").Resize(10, 0).CenterCrop()},
		{"negative resize", Load("u").Resize(-1, 10)},
		{"mipmap with transforms", Load("u").Transform(identity).Mipmap()},
	}
	for _, tst := range tests {
		if _, err := tst.builder.Build(); !errors.Is(err, errs.ErrConfigurationConflict) {
			t.Errorf("%s: expected configuration conflict, got %v", tst.name, err)
		}
	}
}

func TestFirstErrorWins(t *testing.T) {
	_, err := Load("u").CenterCrop().Transform(nil).Build()
	if !errors.Is(err, errs.ErrConfigurationConflict) {
		t.Fail()
	}
}

func TestBuildCopiesTransforms(t *testing.T) {
	b := Load("u").Transform(identity)
	req, err := b.Build()
	if err != nil {
		t.FailNow()
	}
	b.Transform(identity)
	if len(req.Transforms) != 1 {
		t.Fail()
	}
}

func TestValidate(t *testing.T) {
	for _, uri := range []string{"", "   "} {
		req, err := Load(uri).Build()
		if err != nil {
			t.FailNow()
		}
		if !errors.Is(req.Validate(), errs.ErrInvalidRequest) {
			t.Fail()
		}
	}
}

func TestCenterCrop(t *testing.T) {
	req, err := Load("img://a").Resize(100, 100).CenterCrop().Build()
	if err != nil {
		t.FailNow()
	}
	if req.ScaleMode != transform.CenterCrop || req.Width != 100 || req.Height != 100 {
		t.Fail()
	}
}

func TestFromParams(t *testing.T) {
	req, err := FromParams(Params{URI: "http://x/a.png", Width: 10, Height: 20, ScaleMode: "centerCrop",
		Transforms: []string{"grayscale", "blur:1.5"}, AnimateGif: true})
	if err != nil {
		t.FailNow()
	}
	if req.Method != "GET" || req.Width != 10 || req.ScaleMode != transform.CenterCrop || len(req.Transforms) != 2 ||
		req.Transforms[1].Key() != "blur:1.5" || !req.AnimateGif || req.Mipmap {
		t.Fail()
	}
	for _, p := range []Params{
		{URI: ""},
		{URI: "http://x/a.png", ScaleMode: "stretch"},
		{URI: "http://x/a.png", Transforms: []string{"sepia"}},
		{URI: "http://x/a.png", ScaleMode: "centerCrop"},
		{URI: "http://x/a.png", Mipmap: true, Width: 10},
		{URI: "http://x/a.png", Mipmap: true, Transforms: []string{"invert"}},
	} {
		if _, err := FromParams(p); err == nil {
			t.Errorf("expected error for %+v", p)
		}
	}
}

func TestMaxDimension(t *testing.T) {
	defer transform.SetMaxDimension(0)
	md := transform.MaxDimension()
	if _, err := Load("http://x/a.png").Resize(md, md).Build(); err != nil {
		t.Fail()
	}
	for _, wh := range [][2]int{{md + 1, 0}, {0, md + 1}, {60000, 60000}} {
		if _, err := Load("http://x/a.png").Resize(wh[0], wh[1]).Build(); !errors.Is(err, errs.ErrConfigurationConflict) {
			t.Errorf("%v: %v", wh, err)
		}
	}
	transform.SetMaxDimension(100)
	if _, err := Load("http://x/a.png").Resize(101, 10).Build(); !errors.Is(err, errs.ErrConfigurationConflict) {
		t.Fail()
	}
	if _, err := FromParams(Params{URI: "http://x/a.png", Width: 200}); !errors.Is(err, errs.ErrConfigurationConflict) {
		t.Fail()
	}
}
