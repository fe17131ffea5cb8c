package globals

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/aceeric/imgcache/impl/config"
)

// ParseTls builds the tls.Config the image API serves with from the 'serverTlsConfig'
// block. A nil result with a nil error means plain HTTP. With a cert and key the
// server presents its cert. With 'clientAuth: verify' the server also requires a
// client cert, checked against 'ca' if given and the OS trust store if not.
func ParseTls() (*tls.Config, error) {
	tlsCfg := config.GetServerTlsCfg()
	var verify bool
	switch strings.ToLower(tlsCfg.ClientAuth) {
	case "", "none":
	case "verify":
		verify = true
	default:
		return nil, fmt.Errorf("unsupported client auth value: %s", tlsCfg.ClientAuth)
	}
	if tlsCfg.Cert == "" && tlsCfg.Key == "" && !verify {
		return nil, nil
	}
	cfg := &tls.Config{}
	if tlsCfg.Cert != "" && tlsCfg.Key != "" {
		cert, err := tls.LoadX509KeyPair(tlsCfg.Cert, tlsCfg.Key)
		if err != nil {
			return nil, fmt.Errorf("server cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if verify {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
		if tlsCfg.CA != "" {
			pool, err := caPool(tlsCfg.CA)
			if err != nil {
				return nil, err
			}
			cfg.ClientCAs = pool
		}
	}
	return cfg, nil
}

// caPool reads a PEM bundle into a cert pool
func caPool(file string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in CA file %s", file)
	}
	return pool, nil
}
