package engine

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/decode"
	"github.com/aceeric/imgcache/impl/errs"
	"github.com/aceeric/imgcache/impl/future"
	"github.com/aceeric/imgcache/impl/keys"
	"github.com/aceeric/imgcache/impl/loader"
	"github.com/aceeric/imgcache/impl/metrics"
	"github.com/aceeric/imgcache/impl/request"
	"github.com/aceeric/imgcache/impl/transform"

	log "github.com/sirupsen/logrus"
)

var errNoTransport = errors.New("no transport configured")

// errAbandoned means the producer gave up its registry entry and must not complete it
var errAbandoned = errors.New("abandoned")

// produceRaw produces the untransformed bitmap for the DownloadKey: from the disk
// cache, else from the loader chain, else from the network. If 'put' is true the
// result is also put in memory under the DownloadKey. A raw download that only feeds
// a transform is not worth the memory.
func (e *Engine) produceRaw(ctx context.Context, req request.Request, k keys.Keys, put bool) (bitmap.Info, error) {
	info, err := e.fetchRaw(ctx, req, k.Download)
	if err != nil {
		return bitmap.Info{}, err
	}
	info = info.WithKey(k.Download)
	if put {
		e.mem.Put(k.Download, info)
	}
	return info, nil
}

func (e *Engine) fetchRaw(ctx context.Context, req request.Request, key string) (bitmap.Info, error) {
	if !req.NoCache {
		if info, ok := e.fromDisk(key, req.AnimateGif, 0); ok {
			return info, nil
		}
	}
	if e.loaders != nil {
		if f := e.loaders.LoadBitmap(ctx, req.URI, req.Width, req.Height); f != nil {
			return fromLoader(ctx, f, req, key)
		}
	}
	return e.fetchNetwork(ctx, req, key, 0)
}

// fromLoader waits for a loader's result. Loader results are not written to disk.
func fromLoader(ctx context.Context, f *future.Future[bitmap.Info], req request.Request, key string) (bitmap.Info, error) {
	info, err := f.Get(ctx)
	if err != nil {
		if errors.Is(err, loader.ErrNotPermitted) {
			return bitmap.Info{}, errs.Invalid(err.Error())
		}
		if errors.Is(err, fs.ErrNotExist) {
			return bitmap.Info{}, errs.Transport(key, err)
		}
		return bitmap.Info{}, errs.Decode(key, err)
	}
	if info.IsEmpty() {
		return bitmap.Info{}, errs.Decode(key, errors.New("loader returned no bitmap"))
	}
	if !req.AnimateGif && len(info.Frames) > 1 {
		info.Frames = info.Frames[:1]
		info.Delays = nil
	}
	metrics.IncLoaderHits()
	return info.Produced(bitmap.FromLoader), nil
}

// fetchNetwork fetches the resource. With a disk cache, the body is streamed into the
// cache under the key and decoded from the committed file, sampled to 'maxDim' if
// non-zero. Without one, the body is decoded as it is read. A file that fails to
// decode is removed so that the failure is not cached.
func (e *Engine) fetchNetwork(ctx context.Context, req request.Request, key string, maxDim int) (bitmap.Info, error) {
	if e.transport == nil {
		return bitmap.Info{}, errs.Transport(key, errNoTransport)
	}
	metrics.IncNetworkFetches()
	body, err := e.transport.Fetch(ctx, req.Method, req.URI)
	if err != nil {
		return bitmap.Info{}, errs.Transport(key, err)
	}
	defer body.Close()
	tr := &trackingReader{r: body}
	if e.disk == nil {
		info, err := decode.Decode(tr, req.AnimateGif)
		if tr.err != nil {
			return bitmap.Info{}, errs.Transport(key, tr.err)
		}
		if err != nil {
			return bitmap.Info{}, errs.Decode(key, err)
		}
		return info.Produced(bitmap.FromNetwork), nil
	}
	if _, err := e.disk.Put(key, 0, tr); err != nil {
		return bitmap.Info{}, errs.Transport(key, err)
	}
	path, ok := e.disk.GetFile(key, 0)
	if !ok {
		return bitmap.Info{}, errs.Transport(key, errors.New("committed file not found"))
	}
	info, err := decode.DecodeFile(path, req.AnimateGif, maxDim)
	if err != nil {
		if rerr := e.disk.Remove(key); rerr != nil {
			log.Errorf("unable to remove undecodable entry %s: %s", key, rerr)
		}
		return bitmap.Info{}, errs.Decode(key, err)
	}
	return info.Produced(bitmap.FromNetwork), nil
}

// produceTransformed produces the bitmap for the BitmapKey. A disk hit under the
// BitmapKey skips the raw download and the transforms entirely.
func (e *Engine) produceTransformed(ctx context.Context, req request.Request, k keys.Keys) (bitmap.Info, error) {
	if !req.NoCache {
		if info, ok := e.fromDisk(k.Bitmap, req.AnimateGif, 0); ok {
			info = info.WithKey(k.Bitmap)
			e.mem.Put(k.Bitmap, info)
			return info, nil
		}
	}
	raw, err := e.awaitRaw(ctx, req, k)
	if err != nil {
		return bitmap.Info{}, err
	}
	// cancellation checkpoint: nobody is left to deliver to
	if e.reg.AbandonIfIdle(k.Bitmap) {
		log.Debugf("no waiters remain for key %s, skipping transforms", k.Bitmap)
		return bitmap.Info{}, errAbandoned
	}
	out, err := transform.Apply(raw, k.Transforms)
	if err != nil {
		return bitmap.Info{}, errs.Transform(k.Bitmap, err)
	}
	metrics.IncTransforms()
	// the raw input may have been a memory hit: the result is reported, and persisted
	// or not, by where the raw pixels were produced
	out = out.Produced(raw.Source).WithKey(k.Bitmap)
	if out.Source != bitmap.FromLoader {
		e.persist(k.Bitmap, out)
	}
	e.mem.Put(k.Bitmap, out)
	return out, nil
}

// awaitRaw gets the raw bitmap for a transform. The raw download is itself
// deduplicated under the DownloadKey, so it joins an in-flight download of the same
// resource for any other transform chain, or for no transforms at all.
func (e *Engine) awaitRaw(ctx context.Context, req request.Request, k keys.Keys) (bitmap.Info, error) {
	if !req.NoCache {
		if info, ok := e.tryMemory(k.Download); ok {
			return info, nil
		}
	}
	f := future.New[bitmap.Info]()
	_, started := e.reg.Add(k.Download, func(info bitmap.Info, err error) {
		f.Complete(info, err)
	})
	if started {
		e.spawn(ctx, k.Download, func(ctx context.Context) (bitmap.Info, error) {
			return e.produceRaw(ctx, req, k, false)
		})
	}
	return f.Get(ctx)
}

// fromDisk decodes a disk cache hit for the key. An entry that does not decode is
// removed and reported as a miss, so the caller produces the key afresh rather than
// failing on the same file for every later request.
func (e *Engine) fromDisk(key string, animateGif bool, maxDim int) (bitmap.Info, bool) {
	path, ok := e.tryDisk(key)
	if !ok {
		return bitmap.Info{}, false
	}
	info, err := decode.DecodeFile(path, animateGif, maxDim)
	if err != nil {
		log.Warnf("removing undecodable disk entry %s: %s", key, err)
		if rerr := e.disk.Remove(key); rerr != nil {
			log.Errorf("unable to remove undecodable entry %s: %s", key, rerr)
		}
		return bitmap.Info{}, false
	}
	metrics.IncDiskHits()
	return info.Produced(bitmap.FromDisk), true
}

// persist writes the transformed result to the disk cache. Failing to persist does
// not fail the request.
func (e *Engine) persist(key string, info bitmap.Info) {
	if e.disk == nil {
		return
	}
	pr, pw := io.Pipe()
	go func() {
		_, err := decode.Encode(pw, info)
		pw.CloseWithError(err)
	}()
	if _, err := e.disk.Put(key, 0, pr); err != nil {
		log.Errorf("unable to persist key %s: %s", key, err)
	}
	pr.Close()
}

// trackingReader remembers a read error so that a failed stream is reported as a
// transport failure rather than a decode failure
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
