package preload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aceeric/imgcache/impl/diskcache"
	"github.com/aceeric/imgcache/impl/engine"
	"github.com/aceeric/imgcache/impl/keys"
	"github.com/aceeric/imgcache/impl/transport"
	"github.com/aceeric/imgcache/mock"
)

var preloadFile = `
# images to warm
http://%[1]s/img/a.png
http://%[1]s/img/b.png w=20 h=20 scaleMode=centerCrop transform=grayscale
http://%[1]s/anim/c.gif noAnimate

http://%[1]s/status/500
http://%[1]s/img/a.png
`

func TestLoad(t *testing.T) {
	var cnt atomic.Int32
	callback := func(string) { cnt.Add(1) }
	server, url := mock.ServerWithCallback(mock.NewMockParams(mock.NONE, mock.HTTP), &callback)
	defer server.Close()
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	dc, err := diskcache.New(filepath.Join(td, "cache"))
	if err != nil {
		t.FailNow()
	}
	eng, _ := engine.New(engine.Opts{Disk: dc, Transport: transport.New(5 * time.Second)})
	f := filepath.Join(td, "preload")
	os.WriteFile(f, []byte(fmt.Sprintf(preloadFile, url)), 0644)

	loaded, err := Load(context.Background(), eng, f, 2)
	if err != nil {
		t.FailNow()
	}
	// the failing url does not stop the others
	if loaded != 4 {
		t.Fail()
	}
	// a.png twice is fetched once
	if cnt.Load() != 4 {
		t.Fail()
	}
	a := keys.DownloadKey(fmt.Sprintf("http://%s/img/a.png", url), true, false)
	if !dc.ContainsKey(a) {
		t.Fail()
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{
		"http://x/a.png w=wide",
		"http://x/a.png frobozz",
		"http://x/a.png transform=sepia",
		"http://x/a.png mipmap w=10",
	} {
		if _, err := parseLine(line); err == nil {
			t.Errorf("expected error for %q", line)
		}
	}
	req, err := parseLine("http://x/a.png w=10 h=5 transform=invert noAnimate")
	if err != nil || req.Width != 10 || req.Height != 5 || len(req.Transforms) != 1 || req.AnimateGif {
		t.Fail()
	}
}

func TestLoadMissingFile(t *testing.T) {
	eng, _ := engine.New(engine.Opts{})
	if _, err := Load(context.Background(), eng, "/no/such/file", 1); err == nil {
		t.Fail()
	}
}
