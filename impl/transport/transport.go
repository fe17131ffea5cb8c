// Package transport fetches resource bytes over HTTP. One pooled client is kept per
// host, configured from the host's entry in the configuration (scheme, basic auth,
// client TLS). URIs without a scheme get the scheme configured for their host.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aceeric/imgcache/impl/config"

	"github.com/hashicorp/go-cleanhttp"
	log "github.com/sirupsen/logrus"
)

// Transport is what the engine needs from the network
type Transport interface {
	Fetch(ctx context.Context, method, uri string) (io.ReadCloser, error)
}

// OptsFunc returns the options for a host
type OptsFunc func(host string) (config.HostOpts, error)

// StatusError is returned for a non-2xx response
type StatusError struct {
	Code int
	Uri  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Uri, e.Code)
}

type HTTPTransport struct {
	timeout time.Duration
	optsFor OptsFunc
	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	http *http.Client
	opts config.HostOpts
}

// New returns a transport that reads host options from the configuration. A zero
// timeout means no timeout.
func New(timeout time.Duration) *HTTPTransport {
	return NewWithOpts(timeout, config.ConfigFor)
}

// NewWithOpts returns a transport that gets host options from the passed func
func NewWithOpts(timeout time.Duration, optsFor OptsFunc) *HTTPTransport {
	return &HTTPTransport{
		timeout: timeout,
		optsFor: optsFor,
		clients: map[string]*client{},
	}
}

// Reset discards the per-host clients so the next fetch picks up changed host
// options.
func (t *HTTPTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.clients {
		c.http.CloseIdleConnections()
	}
	t.clients = map[string]*client{}
}

// Fetch issues the request and returns the response body on a 2xx status. The caller
// closes the body. Any other status is a *StatusError.
func (t *HTTPTransport) Fetch(ctx context.Context, method, uri string) (io.ReadCloser, error) {
	host := hostOf(uri)
	c, err := t.clientFor(host)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(uri, "://") {
		uri = c.opts.Scheme + "://" + uri
	}
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, err
	}
	if c.opts.Username != "" {
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}
	log.Debugf("fetching %s %s", method, uri)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Uri: uri}
	}
	return resp.Body, nil
}

func (t *HTTPTransport) clientFor(host string) (*client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[host]; ok {
		return c, nil
	}
	opts, err := t.optsFor(host)
	if err != nil {
		return nil, err
	}
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = t.timeout
	if opts.TlsCfg != nil {
		hc.Transport.(*http.Transport).TLSClientConfig = opts.TlsCfg
	}
	c := &client{http: hc, opts: opts}
	t.clients[host] = c
	return c, nil
}

// hostOf returns the host (with port) of a uri with or without a scheme
func hostOf(uri string) string {
	if _, rest, found := strings.Cut(uri, "://"); found {
		uri = rest
	}
	host, _, _ := strings.Cut(uri, "/")
	host, _, _ = strings.Cut(host, "?")
	if _, h, found := strings.Cut(host, "@"); found {
		host = h
	}
	return host
}
