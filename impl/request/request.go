// Package request has the logical image request and the builder that configures it.
// Configuration conflicts are detected by the builder, before any I/O begins.
package request

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/aceeric/imgcache/impl/errs"
	"github.com/aceeric/imgcache/impl/transform"
)

// Request has everything the engine needs to execute one image acquisition. If built
// with 'request.Load("https://example.com/a.png").Resize(100, 100).CenterCrop()' then the
// struct members are like so:
//
//	URI        = https://example.com/a.png
//	Method     = GET
//	Width      = 100
//	Height     = 100
//	ScaleMode  = CenterCrop
//	AnimateGif = true
//
// A Request returned by Builder.Build is a value: the engine never modifies it.
type Request struct {
	URI    string
	Method string
	// Width and Height are the resize dimensions. Zero means unspecified.
	Width     int
	Height    int
	ScaleMode transform.ScaleMode
	// Transforms is the caller's transform chain in declared order. The implicit resize
	// transform is not in this list - see keys.Derive
	Transforms []transform.Transform
	// Mipmap stages the full asset on disk before decoding a sampled master tile
	Mipmap bool
	// NoCache skips both the memory and the disk cache lookups
	NoCache bool
	// AnimateGif decodes all frames of an animated GIF rather than the first frame only
	AnimateGif bool
}

// HasResize is true if resize dimensions were configured
func (r Request) HasResize() bool {
	return r.Width > 0 || r.Height > 0
}

// Validate checks the things that can only be checked once the request is complete
func (r Request) Validate() error {
	if strings.TrimSpace(r.URI) == "" {
		return errs.Invalid("uri is required")
	}
	return nil
}

// Builder incrementally configures a Request. The first configuration error is kept
// and returned by Build; subsequent calls are ignored once an error is recorded.
type Builder struct {
	req Request
	err error
}

// Load starts a GET request for the passed URI
func Load(uri string) *Builder {
	return LoadMethod(http.MethodGet, uri)
}

// LoadMethod starts a request for the passed URI with the passed HTTP method
func LoadMethod(method, uri string) *Builder {
	if method == "" {
		method = http.MethodGet
	}
	return &Builder{
		req: Request{
			URI:        uri,
			Method:     strings.ToUpper(method),
			ScaleMode:  transform.FitXY,
			AnimateGif: true,
		},
	}
}

// Resize sets the target dimensions. Zero in one dimension preserves the aspect ratio.
// Neither dimension may exceed transform.MaxDimension.
func (b *Builder) Resize(width, height int) *Builder {
	if b.err != nil {
		return b
	}
	switch {
	case b.req.Mipmap:
		b.err = errs.Conflict("can't resize after mipmap has been called")
	case width < 0 || height < 0:
		b.err = errs.Conflict("resize dimensions must not be negative")
	case width > transform.MaxDimension() || height > transform.MaxDimension():
		b.err = errs.Conflict(fmt.Sprintf("resize dimensions must not exceed %d", transform.MaxDimension()))
	default:
		b.req.Width = width
		b.req.Height = height
	}
	return b
}

// CenterCrop requires both resize dimensions to be set first
func (b *Builder) CenterCrop() *Builder {
	return b.scaleMode(transform.CenterCrop)
}

// CenterInside requires both resize dimensions to be set first
func (b *Builder) CenterInside() *Builder {
	return b.scaleMode(transform.CenterInside)
}

// ScaleMode sets the passed mode. FitXY is always allowed, the other modes require
// resize first.
func (b *Builder) ScaleMode(mode transform.ScaleMode) *Builder {
	return b.scaleMode(mode)
}

func (b *Builder) scaleMode(mode transform.ScaleMode) *Builder {
	if b.err != nil {
		return b
	}
	if mode != transform.FitXY && (b.req.Width <= 0 || b.req.Height <= 0) {
		b.err = errs.Conflict("must call resize first")
		return b
	}
	b.req.ScaleMode = mode
	return b
}

// Mipmap selects the disk-staged progressive load path
func (b *Builder) Mipmap() *Builder {
	if b.err != nil {
		return b
	}
	if b.req.HasResize() {
		b.err = errs.Conflict("can't mipmap after resize has been called")
		return b
	}
	b.req.Mipmap = true
	return b
}

// AnimateGif controls whether all frames of an animated GIF are decoded
func (b *Builder) AnimateGif(animate bool) *Builder {
	b.req.AnimateGif = animate
	return b
}

// NoCache bypasses the memory and disk cache lookups
func (b *Builder) NoCache() *Builder {
	b.req.NoCache = true
	return b
}

// Transform appends a transform to the chain
func (b *Builder) Transform(t transform.Transform) *Builder {
	if b.err != nil {
		return b
	}
	if t == nil {
		b.err = errs.Invalid("nil transform")
		return b
	}
	b.req.Transforms = append(b.req.Transforms, t)
	return b
}

// Build returns the configured Request, or the first configuration error. The
// returned Request does not share the transform slice with the builder.
func (b *Builder) Build() (Request, error) {
	if b.err != nil {
		return Request{}, b.err
	}
	if b.req.Mipmap && len(b.req.Transforms) != 0 {
		return Request{}, errs.Conflict("transforms are not supported with mipmap")
	}
	req := b.req
	req.Transforms = append([]transform.Transform(nil), b.req.Transforms...)
	return req, nil
}
