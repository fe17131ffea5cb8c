package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aceeric/imgcache/cmd/subcmd"
	"github.com/aceeric/imgcache/impl/cmdline"
	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/mock"
)

// setup clears state left by a prior parse
func setup() {
	cmdline.ClearParse()
	config.Set(config.Configuration{})
}

// Test the top-level imgcache commands that function as CLIs (they perform
// an action and then immediately exit to the console.)
func TestTopLvlCLIs(t *testing.T) {
	server, url := mock.Server(mock.NewMockParams(mock.NONE, mock.HTTP))
	defer server.Close()
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fail()
	}
	defer os.RemoveAll(td)
	imgFilename := filepath.Join(td, "images")
	os.WriteFile(imgFilename, []byte(fmt.Sprintf("http://%s/img/a.png\n", url)), 0777)

	imgFilenameBad := filepath.Join(td, "images-bad")
	os.WriteFile(imgFilenameBad, []byte("http://x/a.png w=wide\n"), 0777)
	cache := filepath.Join(td, "cache")
	out := filepath.Join(td, "out.png")

	testCases := []struct {
		name      string
		args      []string
		expResult int
	}{
		{name: "No command", args: []string{"bin/imgcache"}, expResult: 0},
		{name: "Version", args: []string{"bin/imgcache", "version"}, expResult: 0},
		{name: "Preload", args: []string{"bin/imgcache", "--cache-path", cache, "preload", "--preload-file", imgFilename}, expResult: 0},
		{name: "List", args: []string{"bin/imgcache", "--cache-path", cache, "list", "--header"}, expResult: 0},
		{name: "Fetch", args: []string{"bin/imgcache", "--cache-path", cache, "fetch", "--uri", fmt.Sprintf("http://%s/img/a.png", url), "--width", "10", "--output", out}, expResult: 0},
		{name: "Prune", args: []string{"bin/imgcache", "--cache-path", cache, "prune", "--size", "1GB"}, expResult: 0},
		{name: "Preload - invalid line", args: []string{"bin/imgcache", "--cache-path", cache, "preload", "--preload-file", imgFilenameBad}, expResult: 1},
		{name: "Fetch - upstream failure", args: []string{"bin/imgcache", "--cache-path", cache, "fetch", "--uri", fmt.Sprintf("http://%s/status/500", url), "--output", out}, expResult: 1},
		{name: "Prune - invalid date", args: []string{"bin/imgcache", "--cache-path", cache, "prune", "--date", "does-not-parse"}, expResult: 1},
		{name: "Unknown flag", args: []string{"bin/imgcache", "serve", "--frobozz"}, expResult: 1},
	}
	for _, testCase := range testCases {
		setup()
		os.Args = testCase.args
		result := realMain()
		if result != testCase.expResult {
			t.Errorf("imgcache top-level test case %s failed", testCase.name)
		}
	}
	if _, err := os.Stat(out); err != nil {
		t.Fail()
	}
}

// Test the "serve" command: serve an image then stop via the command api
func TestTopLvlServe(t *testing.T) {
	subcmd.InitListener()
	if err := doTestServe(); err != nil {
		t.Fatal(err)
	}
}

// Starts the server "serve" sub-command
func doTestServe() error {
	server, url := mock.Server(mock.NewMockParams(mock.NONE, mock.HTTP))
	defer server.Close()
	td, err := os.MkdirTemp("", "")
	if err != nil {
		return err
	}
	defer os.RemoveAll(td)

	setup()
	os.Args = []string{"bin/imgcache", "--cache-path", td, "serve", "--port", "0"}
	done := make(chan int)
	go func() {
		done <- realMain()
	}()
	err = waitForEchoListener()
	if err != nil {
		return err
	}
	echoListener := subcmd.GetListener()
	if echoListener == nil {
		return errors.New("failed to get echo listener")
	}
	tcpAddr, ok := echoListener.Addr().(*net.TCPAddr)
	if !ok {
		return errors.New("unexpected listener address type")
	}
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/v1/image?uri=http://%s/img/a.png&w=16&h=16", tcpAddr.Port, url))
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	// the request validator rejects a request missing the uri
	resp, err = http.Get(fmt.Sprintf("http://localhost:%d/v1/image?w=16", tcpAddr.Port))
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	// shut the server down
	if _, err = http.Get(fmt.Sprintf("http://localhost:%d/cmd/stop", tcpAddr.Port)); err != nil {
		return err
	}
	select {
	case result := <-done:
		if result != 0 {
			return fmt.Errorf("serve returned %d", result)
		}
	case <-time.After(5 * time.Second):
		return errors.New("server did not stop")
	}
	return nil
}

// waitForEchoListener waits for the Echo server to initialize. This allows to
// get the port number that the server is listening on.
func waitForEchoListener() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if subcmd.GetListener() != nil {
				return nil
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}
