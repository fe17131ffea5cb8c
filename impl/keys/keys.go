// Package keys derives the cache keys for a request. The DownloadKey identifies the
// raw decoded resource and depends only on the URI, the gif animation flag and the
// mipmap flag. The BitmapKey identifies the result of a specific transform chain
// applied to that resource.
package keys

import (
	"github.com/aceeric/imgcache/impl/request"
	"github.com/aceeric/imgcache/impl/transform"

	digest "github.com/opencontainers/go-digest"
)

const (
	noAnimateGifSuffix = ":!noAnimateGif"
	mipmapSuffix       = ":mipmap"
)

// Keys is the result of deriving keys for a request
type Keys struct {
	Download string
	Bitmap   string
	// Transforms is the effective chain: the caller's transforms followed by the
	// implicit resize transform if the request has resize dimensions
	Transforms []transform.Transform
}

// HasTransforms is true if the effective chain is non-empty, in which case the
// Bitmap key differs from the Download key
func (k Keys) HasTransforms() bool {
	return len(k.Transforms) != 0
}

// Normalize canonicalizes the passed string into a fixed-length, filesystem-safe
// key: the hex encoding of its sha256 digest.
func Normalize(s string) string {
	return digest.FromString(s).Encoded()
}

// DownloadKey computes the key for the raw resource
func DownloadKey(uri string, animateGif, mipmap bool) string {
	key := uri
	// the download is the same but the initial decode differs
	if !animateGif {
		key += noAnimateGifSuffix
	}
	if mipmap {
		key += mipmapSuffix
	}
	return Normalize(key)
}

// Derive computes both keys for the passed request. The request is not modified.
func Derive(req request.Request) Keys {
	download := DownloadKey(req.URI, req.AnimateGif, req.Mipmap)
	chain := append([]transform.Transform(nil), req.Transforms...)
	if req.HasResize() {
		chain = append(chain, transform.NewResize(req.Width, req.Height, req.ScaleMode))
	}
	k := Keys{
		Download:   download,
		Bitmap:     download,
		Transforms: chain,
	}
	if len(chain) != 0 {
		k.Bitmap = Normalize(download + transform.Keys(chain))
	}
	return k
}
