package request

import (
	"github.com/aceeric/imgcache/impl/errs"
	"github.com/aceeric/imgcache/impl/transform"
)

// Params is the flat form of a request as it arrives from the API, the command line,
// or a preload file. Transforms are expressions understood by transform.Parse.
type Params struct {
	URI        string
	Method     string
	Width      int
	Height     int
	ScaleMode  string
	Transforms []string
	Mipmap     bool
	NoCache    bool
	AnimateGif bool
}

// FromParams builds a Request from the passed params through the Builder so the
// same configuration conflicts are detected.
func FromParams(p Params) (Request, error) {
	mode, err := transform.ParseScaleMode(p.ScaleMode)
	if err != nil {
		return Request{}, errs.Invalid(err.Error())
	}
	chain, err := transform.ParseAll(p.Transforms)
	if err != nil {
		return Request{}, errs.Invalid(err.Error())
	}
	b := LoadMethod(p.Method, p.URI).AnimateGif(p.AnimateGif)
	for _, t := range chain {
		b.Transform(t)
	}
	if p.Width != 0 || p.Height != 0 {
		b.Resize(p.Width, p.Height)
	}
	b.ScaleMode(mode)
	if p.Mipmap {
		b.Mipmap()
	}
	if p.NoCache {
		b.NoCache()
	}
	req, err := b.Build()
	if err != nil {
		return Request{}, err
	}
	return req, req.Validate()
}
