package impl

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// GET /cmd/stop
func (r *ImgCache) handleCmdStop(ctx echo.Context) error {
	r.shutdownCh <- true
	return nil
}

// GET /cmd/pending lists each in-flight key with its waiter count
func (r *ImgCache) handleCmdPending(ctx echo.Context) error {
	reg := r.engine.Registry()
	pending := reg.Keys()
	if len(pending) == 0 {
		return ctx.String(http.StatusOK, "no pending keys\n")
	}
	slices.Sort(pending)
	sb := strings.Builder{}
	for _, key := range pending {
		fmt.Fprintf(&sb, "%s %d\n", key, reg.Waiting(key))
	}
	return ctx.String(http.StatusOK, sb.String())
}
