package impl

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aceeric/imgcache/mock"
)

func TestCmdStop(t *testing.T) {
	e, r, cleanup := newServer(t, 0)
	defer cleanup()
	if rec := get(e, "/cmd/stop"); rec.Code != http.StatusOK {
		t.Fail()
	}
	select {
	case <-r.shutdownCh:
	default:
		t.Fail()
	}
}

func TestCmdPending(t *testing.T) {
	params := mock.NewMockParams(mock.NONE, mock.HTTP)
	params.DelayMs = 300
	server, url := mock.Server(params)
	defer server.Close()
	e, _, cleanup := newServer(t, 0)
	defer cleanup()
	if rec := get(e, "/cmd/pending"); !strings.HasPrefix(rec.Body.String(), "no pending") {
		t.FailNow()
	}
	done := make(chan struct{})
	go func() {
		get(e, fmt.Sprintf("/v1/image?uri=http://%s/img/a.png", url))
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := get(e, "/cmd/pending")
		if strings.HasSuffix(rec.Body.String(), " 1\n") {
			break
		}
		if time.Now().After(deadline) {
			t.FailNow()
		}
		time.Sleep(10 * time.Millisecond)
	}
	<-done
}
