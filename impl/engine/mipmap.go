package engine

import (
	"context"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/keys"
	"github.com/aceeric/imgcache/impl/request"

	log "github.com/sirupsen/logrus"
)

// mipmapState is a state of the mipmap load. Each state's step returns the next state
// and the state carries the outcome once done.
type mipmapState int

const (
	checkMemory mipmapState = iota
	checkDiskFile
	downloading
	decoded
)

func (s mipmapState) String() string {
	return [...]string{"CheckMemory", "CheckDiskFile", "Downloading", "Decoded"}[s]
}

// mipmapLoad is the value passed through the mipmap states
type mipmapLoad struct {
	state mipmapState
	req   request.Request
	key   string
	// path is the committed disk file once known
	path string
	info bitmap.Info
	err  error
}

// loadMipmap runs CheckMemory on the caller's goroutine, and everything after it in
// the one producer for the DownloadKey.
func (e *Engine) loadMipmap(ctx context.Context, req request.Request, k keys.Keys) *Result {
	m := &mipmapLoad{state: checkMemory, req: req, key: k.Download}
	if e.stepMipmap(ctx, m); m.state == decoded && m.err == nil {
		return settled(k, m.info)
	}
	res := newResult(k, e.reg)
	w, started := e.reg.Add(k.Download, res.sink)
	res.waiter = w
	if started {
		e.spawn(ctx, k.Download, func(ctx context.Context) (bitmap.Info, error) {
			for m.state != decoded {
				e.stepMipmap(ctx, m)
			}
			return m.info, m.err
		})
	}
	return res
}

// stepMipmap advances the load by one state
func (e *Engine) stepMipmap(ctx context.Context, m *mipmapLoad) {
	log.Debugf("mipmap key %s: %s", m.key, m.state)
	switch m.state {
	case checkMemory:
		m.state = checkDiskFile
		if !m.req.NoCache {
			if info, ok := e.tryMemory(m.key); ok {
				m.info = info
				m.state = decoded
			}
		}
	case checkDiskFile:
		m.state = downloading
		if !m.req.NoCache {
			// an undecodable file is removed and the load goes on to download
			if info, ok := e.fromDisk(m.key, m.req.AnimateGif, e.mipmapMaxSize); ok {
				m.state = decoded
				m.info = info
				m.path = info.SourceFile
				m.master(e)
			}
		}
	case downloading:
		// streams to disk and decodes the sampled tile from the committed file
		info, err := e.fetchNetwork(ctx, m.req, m.key, e.mipmapMaxSize)
		m.state = decoded
		if err != nil {
			m.err = err
			return
		}
		m.info = info
		m.path = info.SourceFile
		m.master(e)
	}
}

// master tags the tile and puts it in memory under the DownloadKey
func (m *mipmapLoad) master(e *Engine) {
	m.info.Mipmap = true
	m.info = m.info.WithKey(m.key)
	e.mem.Put(m.key, m.info)
}
