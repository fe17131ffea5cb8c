package preload

import (
	"context"

	"github.com/aceeric/imgcache/impl/engine"
	"github.com/aceeric/imgcache/impl/request"

	log "github.com/sirupsen/logrus"
)

// preloadOneImage runs the request through the engine and waits for it to settle. An
// image already in the cache costs nothing. The engine writes what it fetches to the
// disk cache so nothing else needs to be done with the result.
func preloadOneImage(ctx context.Context, eng *engine.Engine, req request.Request) error {
	res, err := eng.Load(ctx, req)
	if err != nil {
		return err
	}
	info, err := res.Wait(ctx)
	if err != nil {
		return err
	}
	log.Infof("preloaded %s from %s", req.URI, info.Origin)
	return nil
}
