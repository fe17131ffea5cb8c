package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/mock"
)

func TestHostOf(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8080/img/a.png": "localhost:8080",
		"https://u:p@example.com/a":       "example.com",
		"example.com/a/b?c=d":             "example.com",
		"example.com?x=1":                 "example.com",
	}
	for uri, host := range tests {
		if hostOf(uri) != host {
			t.Errorf("%s: got %s", uri, hostOf(uri))
		}
	}
}

func TestFetch(t *testing.T) {
	server, url := mock.Server(mock.NewMockParams(mock.NONE, mock.HTTP))
	defer server.Close()
	tr := NewWithOpts(0, func(string) (config.HostOpts, error) {
		return config.HostOpts{Scheme: "http"}, nil
	})
	// with and without a scheme
	for _, uri := range []string{fmt.Sprintf("http://%s/img/a.png", url), fmt.Sprintf("%s/img/a.png", url)} {
		body, err := tr.Fetch(context.Background(), http.MethodGet, uri)
		if err != nil {
			t.FailNow()
		}
		b, _ := io.ReadAll(body)
		body.Close()
		if len(b) == 0 {
			t.Fail()
		}
	}
}

func TestFetchStatus(t *testing.T) {
	server, url := mock.Server(mock.NewMockParams(mock.NONE, mock.HTTP))
	defer server.Close()
	tr := New(0)
	_, err := tr.Fetch(context.Background(), http.MethodGet, fmt.Sprintf("http://%s/status/503", url))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fail()
	}
}

func TestFetchBasicAuth(t *testing.T) {
	server, url := mock.Server(mock.NewMockParams(mock.BASIC, mock.HTTP))
	defer server.Close()
	config.Set(config.Configuration{Hosts: []config.HostConfig{{Name: url, Scheme: "http"}}})
	defer config.Set(config.Configuration{})
	tr := New(0)
	if _, err := tr.Fetch(context.Background(), http.MethodGet, url+"/img/a.png"); err == nil {
		t.FailNow()
	}
	hosts := config.GetHosts()
	hosts[0].Auth.User = mock.BasicUser
	hosts[0].Auth.Password = mock.BasicPassword
	config.SetHosts(hosts)
	tr.Reset()
	body, err := tr.Fetch(context.Background(), http.MethodGet, url+"/img/a.png")
	if err != nil {
		t.FailNow()
	}
	body.Close()
}

func TestFetchTls(t *testing.T) {
	cs, err := mock.NewCertSetup()
	if err != nil {
		t.FailNow()
	}
	params := mock.NewMockParams(mock.NONE, mock.HTTPS)
	params.TlsConfig = &tls.Config{Certificates: []tls.Certificate{cs.ServerCert}}
	server, url := mock.Server(params)
	defer server.Close()
	tr := NewWithOpts(0, func(string) (config.HostOpts, error) {
		return config.HostOpts{Scheme: "https", TlsCfg: &tls.Config{RootCAs: cs.CertPool()}}, nil
	})
	body, err := tr.Fetch(context.Background(), http.MethodGet, url+"/img/a.png")
	if err != nil {
		t.FailNow()
	}
	body.Close()
}

func TestFetchTimeout(t *testing.T) {
	params := mock.NewMockParams(mock.NONE, mock.HTTP)
	params.DelayMs = 500
	server, url := mock.Server(params)
	defer server.Close()
	tr := NewWithOpts(50*time.Millisecond, func(string) (config.HostOpts, error) {
		return config.HostOpts{Scheme: "http"}, nil
	})
	if _, err := tr.Fetch(context.Background(), http.MethodGet, url+"/img/a.png"); err == nil {
		t.Fail()
	}
}
