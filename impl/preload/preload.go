package preload

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aceeric/imgcache/impl/engine"
	"github.com/aceeric/imgcache/impl/request"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Load reads the passed file and runs each request in it through the engine, with at
// most concurrency requests in flight. Each non-blank, non-comment line is a uri
// optionally followed by space-separated options:
//
//	https://example.com/a.png w=100 h=100 scaleMode=centerCrop transform=grayscale
//	https://example.com/b.gif noAnimate
//	https://example.com/c.jpg mipmap
//
// The whole file is parsed before anything is fetched, and a parse error fails the
// load. A request that fails to load is logged and does not stop the others. The
// number of requests that loaded is returned.
func Load(ctx context.Context, eng *engine.Engine, imageListFile string, concurrency int) (int, error) {
	start := time.Now()
	log.Infof("loading images from file: %s", imageListFile)
	reqs, err := readFile(imageListFile)
	if err != nil {
		return 0, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	var loaded atomic.Int32
	g := errgroup.Group{}
	g.SetLimit(concurrency)
	for _, req := range reqs {
		g.Go(func() error {
			if err := preloadOneImage(ctx, eng, req); err != nil {
				log.Errorf("error preloading %s: %s", req.URI, err)
				return nil
			}
			loaded.Add(1)
			return nil
		})
	}
	g.Wait()
	eng.Wait()
	log.Infof("loaded %d of %d images in %s", loaded.Load(), len(reqs), time.Since(start))
	return int(loaded.Load()), nil
}

func readFile(imageListFile string) ([]request.Request, error) {
	f, err := os.Open(imageListFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reqs := []request.Request{}
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		req, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, scanner.Err()
}

// parseLine parses one line of a preload file
func parseLine(line string) (request.Request, error) {
	fields := strings.Fields(line)
	p := request.Params{URI: fields[0], AnimateGif: true}
	for _, opt := range fields[1:] {
		name, val, _ := strings.Cut(opt, "=")
		var err error
		switch name {
		case "w":
			p.Width, err = strconv.Atoi(val)
		case "h":
			p.Height, err = strconv.Atoi(val)
		case "scaleMode":
			p.ScaleMode = val
		case "transform":
			p.Transforms = append(p.Transforms, val)
		case "mipmap":
			p.Mipmap = true
		case "noAnimate":
			p.AnimateGif = false
		default:
			err = fmt.Errorf("unknown option %q", opt)
		}
		if err != nil {
			return request.Request{}, err
		}
	}
	return request.FromParams(p)
}
