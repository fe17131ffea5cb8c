package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/errs"
	"github.com/aceeric/imgcache/impl/keys"
	"github.com/aceeric/imgcache/impl/loader"
	"github.com/aceeric/imgcache/impl/memcache"
	"github.com/aceeric/imgcache/impl/metrics"
	"github.com/aceeric/imgcache/impl/pending"
	"github.com/aceeric/imgcache/impl/request"
	"github.com/aceeric/imgcache/impl/transport"

	log "github.com/sirupsen/logrus"
)

// DefaultMipmapMaxSize bounds the longest side of a mipmap master tile
const DefaultMipmapMaxSize = 2048

// MemoryStore is the fast artifact cache
type MemoryStore interface {
	Get(key string) (bitmap.Info, bool)
	Put(key string, info bitmap.Info)
}

// DiskStore is the slow artifact cache. Put streams the reader into the entry and
// commits it only if the whole stream was read.
type DiskStore interface {
	ContainsKey(key string) bool
	GetFile(key string, index int) (string, bool)
	Put(key string, index int, r io.Reader) (int64, error)
	Remove(key string) error
}

// Opts configures an Engine. Only Memory is required to be useful, everything else
// is optional: without a Disk there is no disk cache and no mipmap path, without a
// Transport every network fetch fails.
type Opts struct {
	Memory        MemoryStore
	Disk          DiskStore
	Registry      *pending.Registry
	Loaders       loader.Loader
	Transport     transport.Transport
	MipmapMaxSize int
}

type Engine struct {
	mem           MemoryStore
	disk          DiskStore
	reg           *pending.Registry
	loaders       loader.Loader
	transport     transport.Transport
	mipmapMaxSize int
	producers     sync.WaitGroup
}

// New returns an Engine. A nil Memory gets a default size LRU, a nil Registry gets
// a new registry.
func New(opts Opts) (*Engine, error) {
	e := &Engine{
		mem:           opts.Memory,
		disk:          opts.Disk,
		reg:           opts.Registry,
		loaders:       opts.Loaders,
		transport:     opts.Transport,
		mipmapMaxSize: opts.MipmapMaxSize,
	}
	if e.mem == nil {
		mc, err := memcache.New(memcache.DefaultSize)
		if err != nil {
			return nil, err
		}
		e.mem = mc
	}
	if e.reg == nil {
		e.reg = pending.New()
	}
	if e.mipmapMaxSize <= 0 {
		e.mipmapMaxSize = DefaultMipmapMaxSize
	}
	return e, nil
}

// Registry returns the pending registry the engine deduplicates through
func (e *Engine) Registry() *pending.Registry {
	return e.reg
}

// Load executes the passed request. Request validation and configuration errors are
// returned synchronously and nothing is started. Otherwise the returned Result settles
// exactly once with the artifact or an execution error. A memory hit returns a Result
// that is already settled. The context is used for its values only: cancelling it does
// not cancel the producer.
func (e *Engine) Load(ctx context.Context, req request.Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Mipmap {
		if req.HasResize() || len(req.Transforms) != 0 {
			return nil, errs.Conflict("mipmap cannot be combined with resize or transforms")
		}
		if e.disk == nil {
			return nil, errs.Conflict("mipmap requires a disk cache")
		}
	}
	k := keys.Derive(req)
	if req.Mipmap {
		return e.loadMipmap(ctx, req, k), nil
	}
	if !req.NoCache {
		if info, ok := e.tryMemory(k.Bitmap); ok {
			return settled(k, info), nil
		}
	}
	res := newResult(k, e.reg)
	w, started := e.reg.Add(k.Bitmap, res.sink)
	res.waiter = w
	if started {
		e.spawn(ctx, k.Bitmap, func(ctx context.Context) (bitmap.Info, error) {
			// a producer that finished between the memory miss and the Add
			if !req.NoCache {
				if info, ok := e.tryMemory(k.Bitmap); ok {
					return info, nil
				}
			}
			if k.HasTransforms() {
				return e.produceTransformed(ctx, req, k)
			}
			return e.produceRaw(ctx, req, k, true)
		})
	}
	return res, nil
}

// Wait blocks until every producer started by the engine has completed
func (e *Engine) Wait() {
	e.producers.Wait()
}

// tryMemory is the synchronous half of the cache gateway
func (e *Engine) tryMemory(key string) (bitmap.Info, bool) {
	info, ok := e.mem.Get(key)
	if ok {
		metrics.IncMemoryHits()
	}
	return info, ok
}

// tryDisk is the existence half of the disk cache gateway
func (e *Engine) tryDisk(key string) (string, bool) {
	if e.disk == nil || !e.disk.ContainsKey(key) {
		return "", false
	}
	return e.disk.GetFile(key, 0)
}

// spawn runs a producer for the key on a context that is never cancelled, and then
// completes the key in the registry with the producer's outcome. A panicking
// producer completes the key with a failure so waiters are never stranded.
func (e *Engine) spawn(ctx context.Context, key string, produce func(context.Context) (bitmap.Info, error)) {
	ctx = context.WithoutCancel(ctx)
	e.producers.Add(1)
	go func() {
		defer e.producers.Done()
		var info bitmap.Info
		var err error
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("producer for key %s panicked: %v", key, r)
				info, err = bitmap.Info{}, errs.Transform(key, fmt.Errorf("panic: %v", r))
			}
			if err != errAbandoned {
				e.complete(key, info, err)
			}
		}()
		log.Debugf("starting producer for key %s", key)
		info, err = produce(ctx)
	}()
}

// complete broadcasts the outcome for the key
func (e *Engine) complete(key string, info bitmap.Info, err error) {
	if err != nil && !errors.Is(err, errs.ErrDetached) {
		kind := errs.KindOf(err)
		if kind == nil {
			kind = errs.ErrTransport
			err = errs.Transport(key, err)
		}
		metrics.IncFailuresByKind(kind.Error())
		log.Warnf("request failed: %s", err)
	}
	e.reg.Complete(key, info, err)
}
