package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// HostOpts is the parsed form of a HostConfig, ready for the transport
type HostOpts struct {
	Scheme   string
	Username string
	Password string
	TlsCfg   *tls.Config
}

// hostOpts caches parsed HostOpts by host name. It is cleared whenever the hosts
// change. Guarded by 'mu'.
var hostOpts = map[string]HostOpts{}

func clearHostOpts() {
	hostOpts = map[string]HostOpts{}
}

// SetHosts replaces only the host configuration. Supports hot reload.
func SetHosts(hosts []HostConfig) {
	mu.Lock()
	defer mu.Unlock()
	config.Hosts = hosts
	clearHostOpts()
}

// ConfigFor looks for a configuration entry keyed by the passed 'host' arg (e.g.
// 'images.example.com' or 'localhost:8080') and returns transport options for that
// host. If no matching config is found, then the returned options have only a
// 'https' scheme and the transport uses its defaults.
//
// Since the config might involve loading certs, the parsed options are saved for reuse
// until the hosts change.
func ConfigFor(host string) (HostOpts, error) {
	mu.Lock()
	defer mu.Unlock()
	if opts, ok := hostOpts[host]; ok {
		return opts, nil
	}
	opts := HostOpts{Scheme: "https"}
	found := HostConfig{}
	for _, h := range config.Hosts {
		if h.Name == host {
			found = h
			break
		}
	}
	if found == (HostConfig{}) {
		return opts, nil
	}
	if found.Scheme != "" {
		opts.Scheme = found.Scheme
	}
	if found.Auth != (authCfg{}) {
		opts.Username = found.Auth.User
		opts.Password = found.Auth.Password
	}
	if found.Tls != (tlsCfg{}) {
		var cp *x509.CertPool
		clientCerts := []tls.Certificate{}
		if found.Tls.CA != "" {
			caCert, err := os.ReadFile(found.Tls.CA)
			if err != nil {
				return opts, fmt.Errorf("unable to load CA for config entry %s from file: %s", host, found.Tls.CA)
			}
			cp = x509.NewCertPool()
			cp.AppendCertsFromPEM(caCert)
		}
		if found.Tls.Cert != "" && found.Tls.Key != "" {
			cert, err := tls.LoadX509KeyPair(found.Tls.Cert, found.Tls.Key)
			if err != nil {
				return opts, fmt.Errorf("unable to load client cert and/or key for config entry %s from files: cert: %s, key: %s", host, found.Tls.Cert, found.Tls.Key)
			}
			clientCerts = []tls.Certificate{cert}
		}
		opts.TlsCfg = &tls.Config{
			InsecureSkipVerify: found.Tls.InsecureSkipVerify,
			RootCAs:            cp,
			Certificates:       clientCerts,
		}
	}
	hostOpts[host] = opts
	return opts, nil
}
