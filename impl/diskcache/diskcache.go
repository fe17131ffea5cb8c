// Package diskcache is the on-disk artifact store. Entries are files named by key and
// index under the 'entries' directory, sharded by the first two characters of the key.
// Writes are streamed into a uniquely-named file in the 'staging' directory and then
// renamed into place, so a reader never observes a partially written entry and an
// entry exists on disk only once it is complete.
package diskcache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aceeric/imgcache/impl/globals"
	"github.com/aceeric/imgcache/impl/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]{2,128}$`)

// ErrInvalidKey is returned for keys that are not filesystem safe
var ErrInvalidKey = errors.New("invalid disk cache key")

type DiskCache struct {
	root string
}

// Entry describes one committed file in the cache
type Entry struct {
	Key     string
	Index   int
	Path    string
	Size    int64
	ModTime time.Time
}

// StaleStaging is how long a staging file goes unmodified before New treats it as
// left behind by a process that did not exit cleanly. Younger files may belong to a
// live Put in another process sharing the directory.
const StaleStaging = time.Hour

// New creates the cache directories under 'root' if needed and removes stale files
// from the staging directory.
func New(root string) (*DiskCache, error) {
	for _, dir := range []string{globals.EntriesDir, globals.StagingDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("unable to create disk cache directory %s: %w", filepath.Join(root, dir), err)
		}
	}
	staged, _ := os.ReadDir(filepath.Join(root, globals.StagingDir))
	for _, f := range staged {
		fi, err := f.Info()
		if err != nil || time.Since(fi.ModTime()) < StaleStaging {
			continue
		}
		log.Debugf("removing stale staging file %s", f.Name())
		os.Remove(filepath.Join(root, globals.StagingDir, f.Name()))
	}
	return &DiskCache{root: root}, nil
}

// Root returns the cache directory
func (c *DiskCache) Root() string {
	return c.root
}

// path returns the path of the entry file for the key and index
func (c *DiskCache) path(key string, index int) string {
	return filepath.Join(c.root, globals.EntriesDir, key[:2], key+"."+strconv.Itoa(index))
}

// ContainsKey is true if a committed entry exists for the key at index zero
func (c *DiskCache) ContainsKey(key string) bool {
	_, exists := c.GetFile(key, 0)
	return exists
}

// GetFile returns the path of the entry file for the key and index, and whether the
// file exists.
func (c *DiskCache) GetFile(key string, index int) (string, bool) {
	if !validKey.MatchString(key) || index < 0 {
		return "", false
	}
	path := c.path(key, index)
	fi, err := os.Stat(path)
	return path, err == nil && fi.Mode().IsRegular()
}

// Open opens the entry file for reading
func (c *DiskCache) Open(key string, index int) (*os.File, error) {
	if !validKey.MatchString(key) || index < 0 {
		return nil, ErrInvalidKey
	}
	return os.Open(c.path(key, index))
}

// Put streams 'r' into a staging file and commits it as the entry for the key and
// index, replacing any existing entry. If reading from 'r' fails, nothing is
// committed and the staging file is removed. Returns the number of bytes committed.
func (c *DiskCache) Put(key string, index int, r io.Reader) (int64, error) {
	if !validKey.MatchString(key) || index < 0 {
		return 0, ErrInvalidKey
	}
	staging := filepath.Join(c.root, globals.StagingDir, uuid.New().String())
	f, err := os.OpenFile(staging, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	cnt, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(staging)
		return 0, err
	}
	target := c.path(key, index)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		os.Remove(staging)
		return 0, err
	}
	var replaced int64
	if fi, err := os.Stat(target); err == nil {
		replaced = fi.Size()
	}
	if err := os.Rename(staging, target); err != nil {
		os.Remove(staging)
		return 0, err
	}
	metrics.DeltaDiskBytes(float64(cnt - replaced))
	return cnt, nil
}

// Remove removes all the entry files for the key
func (c *DiskCache) Remove(key string) error {
	if !validKey.MatchString(key) {
		return ErrInvalidKey
	}
	matches, err := filepath.Glob(filepath.Join(c.root, globals.EntriesDir, key[:2], key+".*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			continue
		}
		if err := os.Remove(m); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		metrics.DeltaDiskBytes(-float64(fi.Size()))
	}
	return nil
}

// Walk calls 'fn' for every committed entry file. Files in the entries directory not
// named like an entry are skipped.
func (c *DiskCache) Walk(fn func(Entry) error) error {
	return filepath.WalkDir(filepath.Join(c.root, globals.EntriesDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		key, index, ok := parseName(d.Name())
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		return fn(Entry{Key: key, Index: index, Path: path, Size: info.Size(), ModTime: info.ModTime()})
	})
}

// parseName splits an entry file name into key and index
func parseName(name string) (string, int, bool) {
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(name[dot+1:])
	if err != nil || !validKey.MatchString(name[:dot]) {
		return "", 0, false
	}
	return name[:dot], index, true
}
