package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/decode"
	"github.com/aceeric/imgcache/impl/future"
)

const (
	fileScheme     = "file://"
	dataScheme     = "data:"
	residentScheme = "mem://"
)

// ErrNotPermitted is returned for a 'file://' URI the loader will not read
var ErrNotPermitted = errors.New("local file not permitted")

// File loads 'file://' URIs from the local filesystem. A non-empty Root confines loads
// to files under it, with symlinks resolved. A path outside Root fails with
// ErrNotPermitted before the filesystem is consulted, so the error says nothing about
// whether the path exists.
type File struct {
	Root string
}

func (l File) LoadBitmap(_ context.Context, uri string, _, _ int) *future.Future[bitmap.Info] {
	if !strings.HasPrefix(uri, fileScheme) {
		return nil
	}
	f := future.New[bitmap.Info]()
	go func() {
		path, err := l.resolve(uri)
		if err != nil {
			f.Complete(bitmap.Info{}, err)
			return
		}
		info, err := decode.DecodeFile(path, true, 0)
		f.Complete(info, err)
	}()
	return f
}

// resolve returns the file path for the uri, checked against the root
func (l File) resolve(uri string) (string, error) {
	path, err := url.PathUnescape(strings.TrimPrefix(uri, fileScheme))
	if err != nil {
		return "", err
	}
	if l.Root == "" {
		return path, nil
	}
	path = filepath.Clean(path)
	if !within(l.Root, path) {
		return "", ErrNotPermitted
	}
	root, err := filepath.EvalSymlinks(l.Root)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	if !within(root, resolved) {
		return "", ErrNotPermitted
	}
	return resolved, nil
}

func within(root, path string) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(root), path)
	return err == nil && filepath.IsLocal(rel)
}

// NoFile claims every 'file://' URI and fails it with ErrNotPermitted, so that local
// paths never reach the network transport
type NoFile struct{}

func (NoFile) LoadBitmap(_ context.Context, uri string, _, _ int) *future.Future[bitmap.Info] {
	if !strings.HasPrefix(uri, fileScheme) {
		return nil
	}
	return future.Completed(bitmap.Info{}, ErrNotPermitted)
}

// Data loads RFC 2397 'data:' URIs, base64 or percent encoded. The media type is
// ignored since the decoder sniffs the format.
type Data struct{}

func (Data) LoadBitmap(_ context.Context, uri string, _, _ int) *future.Future[bitmap.Info] {
	if !strings.HasPrefix(uri, dataScheme) {
		return nil
	}
	b, err := parseDataUri(uri)
	if err != nil {
		return future.Completed(bitmap.Info{}, err)
	}
	info, err := decode.Decode(bytes.NewReader(b), true)
	return future.Completed(info, err)
}

func parseDataUri(uri string) ([]byte, error) {
	meta, payload, found := strings.Cut(strings.TrimPrefix(uri, dataScheme), ",")
	if !found {
		return nil, errors.New("data uri has no ',' separator")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	return []byte(s), err
}

// Resident serves byte slices registered in-process under 'mem://' URIs. It lets
// an embedding program hand the engine images it already holds, and backs tests
// that need a source other than the network.
type Resident struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewResident returns an empty Resident loader
func NewResident() *Resident {
	return &Resident{items: map[string][]byte{}}
}

// Register registers encoded image bytes under a name. The URI that loads it is
// 'mem://' + name.
func (r *Resident) Register(name string, b []byte) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[name] = b
	return residentScheme + name
}

// Unregister removes a registration
func (r *Resident) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, name)
}

func (r *Resident) LoadBitmap(_ context.Context, uri string, _, _ int) *future.Future[bitmap.Info] {
	if !strings.HasPrefix(uri, residentScheme) {
		return nil
	}
	r.mu.RLock()
	b, ok := r.items[strings.TrimPrefix(uri, residentScheme)]
	r.mu.RUnlock()
	if !ok {
		return future.Completed(bitmap.Info{}, fmt.Errorf("nothing registered for %s", uri))
	}
	info, err := decode.Decode(bytes.NewReader(b), true)
	return future.Completed(info, err)
}

// Default returns the built-in loaders in the order the engine consults them. Files
// are read from anywhere, which suits the command line.
func Default(resident *Resident) Chain {
	c := Chain{File{}, Data{}}
	if resident != nil {
		c = append(c, resident)
	}
	return c
}

// Served returns the loaders for a server, whose URIs come from its clients. Local
// files are refused unless 'fileRoot' is set, and then only files under it are read.
func Served(fileRoot string) Chain {
	if fileRoot == "" {
		return Chain{NoFile{}, Data{}}
	}
	return Chain{File{Root: fileRoot}, Data{}}
}
