package mock

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CertSetup has a throwaway CA and a server and client cert signed by it, for
// exercising TLS and mTLS between the image server, the transport and the mock
// image server.
type CertSetup struct {
	// CaPEM is the CA certificate in PEM form
	CaPEM []byte
	// ServerCert is the server key pair
	ServerCert tls.Certificate
	// ServerCertPEM and ServerKeyPEM are the server cert and key in PEM form
	ServerCertPEM []byte
	ServerKeyPEM  []byte
	// ClientCert is the client key pair
	ClientCert tls.Certificate
	// ClientCertPEM and ClientKeyPEM are the client cert and key in PEM form
	ClientCertPEM []byte
	ClientKeyPEM  []byte
}

// NewCertSetup creates a CA and uses it to sign a server cert and a client cert,
// both valid for the loopback addresses.
func NewCertSetup() (CertSetup, error) {
	cs := CertSetup{}
	ca := newX509("root", true)
	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return CertSetup{}, err
	}
	caDer, err := x509.CreateCertificate(rand.Reader, &ca, &ca, &caKey.PublicKey, caKey)
	if err != nil {
		return CertSetup{}, err
	}
	cs.CaPEM = pemBytes("CERTIFICATE", caDer)
	if cs.ServerCert, cs.ServerCertPEM, cs.ServerKeyPEM, err = signedPair("server", ca, caKey); err != nil {
		return CertSetup{}, err
	}
	if cs.ClientCert, cs.ClientCertPEM, cs.ClientKeyPEM, err = signedPair("client", ca, caKey); err != nil {
		return CertSetup{}, err
	}
	return cs, nil
}

// CertPool returns a pool holding only the CA cert
func (cs CertSetup) CertPool() *x509.CertPool {
	cp := x509.NewCertPool()
	cp.AppendCertsFromPEM(cs.CaPEM)
	return cp
}

// WriteServerFiles writes the server cert, server key and CA cert to the passed
// file names in 'dir'.
func (cs CertSetup) WriteServerFiles(dir, cert, key, ca string) error {
	return writeFiles(dir, map[string][]byte{cert: cs.ServerCertPEM, key: cs.ServerKeyPEM, ca: cs.CaPEM})
}

// WriteClientFiles writes the client cert, client key and CA cert to the passed
// file names in 'dir'.
func (cs CertSetup) WriteClientFiles(dir, cert, key, ca string) error {
	return writeFiles(dir, map[string][]byte{cert: cs.ClientCertPEM, key: cs.ClientKeyPEM, ca: cs.CaPEM})
}

func writeFiles(dir string, files map[string][]byte) error {
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
			return err
		}
	}
	return nil
}

// signedPair generates a key and a cert with the passed common name signed by the CA
func signedPair(cn string, ca x509.Certificate, caKey *rsa.PrivateKey) (tls.Certificate, []byte, []byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, nil, nil, err
	}
	tmpl := newX509(cn, false)
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &ca, &key.PublicKey, caKey)
	if err != nil {
		return tls.Certificate{}, nil, nil, err
	}
	certPEM := pemBytes("CERTIFICATE", der)
	keyPEM := pemBytes("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, nil, nil, err
	}
	return pair, certPEM, keyPEM, nil
}

func pemBytes(typ string, der []byte) []byte {
	buf := new(bytes.Buffer)
	pem.Encode(buf, &pem.Block{Type: typ, Bytes: der})
	return buf.Bytes()
}

// newX509 returns a cert template with the passed common name. If isCA is true then
// the template is for a CA cert.
func newX509(cn string, isCA bool) x509.Certificate {
	keyUsage := x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
	if isCA {
		keyUsage |= x509.KeyUsageCertSign
	}
	return x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		IsCA:                  isCA,
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:              keyUsage,
	}
}
