package subcmd

import (
	"context"
	"fmt"

	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/impl/loader"
	"github.com/aceeric/imgcache/impl/preload"
)

// Preload warms the disk cache from the configured preload file and exits
func Preload() error {
	if config.GetPreloadFile() == "" {
		return fmt.Errorf("a preload file is required")
	}
	eng, _, err := newEngine(loader.Default(nil))
	if err != nil {
		return err
	}
	loaded, err := preload.Load(context.Background(), eng, config.GetPreloadFile(), config.GetConcurrency())
	if err != nil {
		return err
	}
	fmt.Printf("loaded %d images\n", loaded)
	return nil
}
