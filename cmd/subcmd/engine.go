package subcmd

import (
	"time"

	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/impl/diskcache"
	"github.com/aceeric/imgcache/impl/engine"
	"github.com/aceeric/imgcache/impl/loader"
	"github.com/aceeric/imgcache/impl/memcache"
	"github.com/aceeric/imgcache/impl/transport"
)

// newEngine builds an engine from the configuration with the passed loaders. The
// transport is returned so the caller can reset it when the image host configuration
// is reloaded.
func newEngine(loaders loader.Chain) (*engine.Engine, *transport.HTTPTransport, error) {
	mc, err := memcache.New(config.GetMemCacheSize())
	if err != nil {
		return nil, nil, err
	}
	dc, err := diskcache.New(config.GetCachePath())
	if err != nil {
		return nil, nil, err
	}
	tr := transport.New(time.Duration(config.GetFetchTimeout()) * time.Millisecond)
	eng, err := engine.New(engine.Opts{
		Memory:        mc,
		Disk:          dc,
		Loaders:       loaders,
		Transport:     tr,
		MipmapMaxSize: config.GetMipmapMaxSize(),
	})
	if err != nil {
		return nil, nil, err
	}
	return eng, tr, nil
}
