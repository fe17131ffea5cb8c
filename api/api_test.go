package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type recorder struct {
	image V1GetImageParams
	keys  V1GetKeysParams
}

func (r *recorder) CmdPending(ctx echo.Context) error { return ctx.NoContent(http.StatusOK) }
func (r *recorder) CmdStop(ctx echo.Context) error    { return ctx.NoContent(http.StatusOK) }
func (r *recorder) V1GetImage(ctx echo.Context, params V1GetImageParams) error {
	r.image = params
	return ctx.NoContent(http.StatusOK)
}
func (r *recorder) V1GetKeys(ctx echo.Context, params V1GetKeysParams) error {
	r.keys = params
	return ctx.NoContent(http.StatusOK)
}

func TestGetSwagger(t *testing.T) {
	swagger, err := GetSwagger()
	if err != nil {
		t.FailNow()
	}
	if err := swagger.Validate(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"/v1/image", "/v1/keys", "/cmd/stop", "/cmd/pending"} {
		if swagger.Paths.Find(path) == nil {
			t.Errorf("missing path %s", path)
		}
	}
	// resize dimensions are bounded before a request reaches the handlers
	for _, path := range []string{"/v1/image", "/v1/keys"} {
		for _, name := range []string{"w", "h"} {
			p := swagger.Paths.Find(path).Get.Parameters.GetByInAndName("query", name)
			if p == nil || p.Schema.Value.Max == nil || *p.Schema.Value.Max != 16384 {
				t.Errorf("%s %s: no maximum", path, name)
			}
		}
	}
}

func TestBindParams(t *testing.T) {
	r := &recorder{}
	e := echo.New()
	RegisterHandlers(e, r)
	req := httptest.NewRequest(http.MethodGet, "/v1/image?uri=http://x/a.png&w=10&h=20&scaleMode=centerCrop&transform=grayscale&transform=blur:1.5&noCache=true", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.FailNow()
	}
	p := r.image
	if p.Uri != "http://x/a.png" || *p.W != 10 || *p.H != 20 || *p.ScaleMode != "centerCrop" || !*p.NoCache || p.Mipmap != nil {
		t.Fail()
	}
	if p.Transform == nil || len(*p.Transform) != 2 || (*p.Transform)[1] != "blur:1.5" {
		t.Fail()
	}
}

func TestBindBadParams(t *testing.T) {
	e := echo.New()
	RegisterHandlers(e, &recorder{})
	for _, url := range []string{"/v1/image", "/v1/image?uri=a&w=wide", "/v1/keys?uri=a&mipmap=maybe"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d", url, rec.Code)
		}
	}
}
