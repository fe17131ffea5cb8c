// Package loader has the pluggable bitmap sources the engine consults before going
// to the network. A Loader claims a URI by returning a non-nil Future, or declines it
// by returning nil. A Chain asks its loaders in order and the first claim wins.
package loader

import (
	"context"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/future"
)

// Loader resolves a URI to a bitmap without the network. Width and height are the
// requested size, which a loader may use as a hint to decode a smaller bitmap. The
// returned Future settles with all frames of the bitmap.
type Loader interface {
	LoadBitmap(ctx context.Context, uri string, width, height int) *future.Future[bitmap.Info]
}

// Chain is an ordered list of loaders, and is itself a Loader
type Chain []Loader

func (c Chain) LoadBitmap(ctx context.Context, uri string, width, height int) *future.Future[bitmap.Info] {
	for _, l := range c {
		if f := l.LoadBitmap(ctx, uri, width, height); f != nil {
			return f
		}
	}
	return nil
}

// Func adapts a function to the Loader interface
type Func func(ctx context.Context, uri string, width, height int) *future.Future[bitmap.Info]

func (f Func) LoadBitmap(ctx context.Context, uri string, width, height int) *future.Future[bitmap.Info] {
	return f(ctx, uri, width, height)
}
