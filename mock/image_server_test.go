package mock

import (
	"crypto/tls"
	"fmt"
	"image"
	"image/gif"
	"net/http"
	"sync/atomic"
	"testing"
)

// Sanity check the mock image server
func TestServer(t *testing.T) {
	var hits atomic.Int32
	callback := func(string) { hits.Add(1) }
	server, url := ServerWithCallback(NewMockParams(NONE, HTTP), &callback)
	defer server.Close()

	resp, err := http.Get(fmt.Sprintf("http://%s/img/foo.png?w=30&h=20", url))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.FailNow()
	}
	img, format, err := image.Decode(resp.Body)
	resp.Body.Close()
	if err != nil || format != "png" || img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
		t.FailNow()
	}
	r1, g1, b1, _ := img.At(0, 0).RGBA()
	r2, g2, b2, _ := ColorFor("foo").RGBA()
	if r1 != r2 || g1 != g2 || b1 != b2 {
		t.Fail()
	}

	resp, err = http.Get(fmt.Sprintf("http://%s/anim/bar.gif?frames=4", url))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.FailNow()
	}
	g, err := gif.DecodeAll(resp.Body)
	resp.Body.Close()
	if err != nil || len(g.Image) != 4 {
		t.Fail()
	}

	for path, status := range map[string]int{"/status/503": 503, "/nope": 404} {
		resp, err := http.Get(fmt.Sprintf("http://%s%s", url, path))
		if err != nil || resp.StatusCode != status {
			t.Fail()
		}
		resp.Body.Close()
	}
	if hits.Load() != 4 {
		t.Fail()
	}
}

func TestBasicAuth(t *testing.T) {
	server, url := Server(NewMockParams(BASIC, HTTP))
	defer server.Close()
	resp, err := http.Get(fmt.Sprintf("http://%s/img/foo.png", url))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		t.FailNow()
	}
	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("http://%s/img/foo.png", url), nil)
	req.SetBasicAuth(BasicUser, BasicPassword)
	resp, err = http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fail()
	}
}

func TestTls(t *testing.T) {
	cs, err := NewCertSetup()
	if err != nil {
		t.FailNow()
	}
	params := NewMockParams(NONE, HTTPS)
	params.TlsConfig = &tls.Config{Certificates: []tls.Certificate{cs.ServerCert}}
	server, url := Server(params)
	defer server.Close()
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: cs.CertPool()}}}
	resp, err := client.Get(fmt.Sprintf("https://%s/img/foo.png", url))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fail()
	}
}
