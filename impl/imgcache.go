// implements the image server. This file is lean to simplify handling any changes to
// the API - each function simply calls a handler in 'handlers.go' or 'cmd_handlers.go'.
package impl

import (
	"time"

	"github.com/aceeric/imgcache/api"
	"github.com/aceeric/imgcache/impl/engine"

	"github.com/labstack/echo/v4"
)

// ImgCache implements api.ServerInterface over an engine
type ImgCache struct {
	engine       *engine.Engine
	fetchTimeout time.Duration
	shutdownCh   chan bool
}

var _ api.ServerInterface = (*ImgCache)(nil)

// NewImgCache creates and returns an ImgCache. A request that has not completed within
// fetchTimeout is detached and answered with 503. Zero means no timeout. A GET on
// /cmd/stop sends on shutdownCh.
func NewImgCache(e *engine.Engine, fetchTimeout time.Duration, shutdownCh chan bool) *ImgCache {
	return &ImgCache{
		engine:       e,
		fetchTimeout: fetchTimeout,
		shutdownCh:   shutdownCh,
	}
}

// GET /v1/image
func (r *ImgCache) V1GetImage(ctx echo.Context, params api.V1GetImageParams) error {
	return r.handleV1GetImage(ctx, params)
}

// GET /v1/keys
func (r *ImgCache) V1GetKeys(ctx echo.Context, params api.V1GetKeysParams) error {
	return r.handleV1GetKeys(ctx, params)
}

// GET /cmd/pending
func (r *ImgCache) CmdPending(ctx echo.Context) error {
	return r.handleCmdPending(ctx)
}

// GET /cmd/stop
func (r *ImgCache) CmdStop(ctx echo.Context) error {
	return r.handleCmdStop(ctx)
}
