package subcmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/impl/decode"
	"github.com/aceeric/imgcache/impl/loader"
	"github.com/aceeric/imgcache/impl/request"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// Fetch runs the configured request through the engine and writes the encoded result
// to the configured output file. The disk cache is used and populated as when serving.
func Fetch() error {
	fc := config.GetFetchConfig()
	if fc.Output == "" {
		return fmt.Errorf("an output file is required")
	}
	req, err := request.FromParams(request.Params{
		URI:        fc.Uri,
		Method:     fc.Method,
		Width:      int(fc.Width),
		Height:     int(fc.Height),
		ScaleMode:  fc.ScaleMode,
		Transforms: fc.Transforms,
		Mipmap:     fc.Mipmap,
		NoCache:    fc.NoCache,
		AnimateGif: !fc.NoAnimate,
	})
	if err != nil {
		return err
	}
	eng, _, err := newEngine(loader.Default(nil))
	if err != nil {
		return err
	}
	ctx := context.Background()
	if timeout := config.GetFetchTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Millisecond)
		defer cancel()
	}
	start := time.Now()
	res, err := eng.Load(ctx, req)
	if err != nil {
		return err
	}
	info, err := res.Wait(ctx)
	if err != nil {
		return err
	}
	// let the producer finish writing the disk cache
	eng.Wait()
	f, err := os.Create(fc.Output)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := decode.Encode(f, info); err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	b := info.Bounds()
	log.Infof("fetched %s from %s in %s", req.URI, info.Origin, time.Since(start))
	fmt.Printf("%s %dx%d frames=%d origin=%s key=%s size=%s\n", fc.Output, b.Dx(), b.Dy(), len(info.Frames),
		info.Origin, res.Keys().Bitmap, humanize.Bytes(uint64(fi.Size())))
	return nil
}
