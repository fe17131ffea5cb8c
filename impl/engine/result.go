package engine

import (
	"context"
	"image"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/errs"
	"github.com/aceeric/imgcache/impl/future"
	"github.com/aceeric/imgcache/impl/keys"
	"github.com/aceeric/imgcache/impl/pending"
)

// Result is the single-use handle a caller gets back from Load. It settles once,
// with the artifact or an error.
type Result struct {
	f      *future.Future[bitmap.Info]
	keys   keys.Keys
	reg    *pending.Registry
	waiter *pending.Waiter
}

func newResult(k keys.Keys, reg *pending.Registry) *Result {
	return &Result{f: future.New[bitmap.Info](), keys: k, reg: reg}
}

// settled returns a Result for a synchronous hit
func settled(k keys.Keys, info bitmap.Info) *Result {
	return &Result{f: future.Completed(info, nil), keys: k}
}

// sink is what the registry delivers to
func (r *Result) sink(info bitmap.Info, err error) {
	r.f.Complete(info, err)
}

// Keys returns the keys derived for the request
func (r *Result) Keys() keys.Keys {
	return r.keys
}

// Future returns the underlying future
func (r *Result) Future() *future.Future[bitmap.Info] {
	return r.f
}

// Done is closed when the Result settles
func (r *Result) Done() <-chan struct{} {
	return r.f.Done()
}

// Wait blocks until the Result settles. If the context is done first, the caller is
// detached and the Result settles with errs.ErrDetached, unless the real outcome won
// the race, in which case that is returned.
func (r *Result) Wait(ctx context.Context) (bitmap.Info, error) {
	select {
	case <-r.f.Done():
	case <-ctx.Done():
		r.Detach()
	}
	info, err, _ := r.f.Result()
	return info, err
}

// AsBitmap waits for the Result and returns its first frame
func (r *Result) AsBitmap(ctx context.Context) (image.Image, error) {
	info, err := r.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return info.First(), nil
}

// Detach removes this caller from the key's waiters and settles the Result with
// errs.ErrDetached if it has not settled yet. The producer keeps running for the
// other waiters and the caches.
func (r *Result) Detach() {
	if r.reg != nil {
		r.reg.Detach(r.waiter)
	}
	r.f.Complete(bitmap.Info{}, errs.ErrDetached)
}
