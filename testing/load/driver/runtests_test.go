package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRunTests(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		seen[strings.Join(r.URL.Query()["transform"], ",")]++
		if r.URL.Query().Get("uri") == "bad" {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()
	counts := runTests(testRun{
		chains:    []string{"", "grayscale,blur:2"},
		urls:      []string{"http://x/a.png", "bad"},
		serverURL: server.URL,
		iteration: 50 * time.Millisecond,
		tally:     10 * time.Millisecond,
		metrics:   io.Discard,
		shuffle:   true,
	})
	for i := range counts {
		if counts[i].ok.Load() == 0 || counts[i].failed.Load() == 0 {
			t.Fail()
		}
	}
	if seen[""] == 0 || seen["grayscale,blur:2"] == 0 {
		t.Fail()
	}
}

func TestSplitChain(t *testing.T) {
	if len(splitChain("")) != 0 || len(splitChain(" grayscale , invert ,")) != 2 {
		t.Fail()
	}
}
