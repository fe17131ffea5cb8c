package impl

import (
	"context"
	"errors"
	"net/http"

	"github.com/aceeric/imgcache/api"
	"github.com/aceeric/imgcache/impl/decode"
	"github.com/aceeric/imgcache/impl/errs"
	"github.com/aceeric/imgcache/impl/keys"
	"github.com/aceeric/imgcache/impl/metrics"
	"github.com/aceeric/imgcache/impl/request"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// GET /v1/image
func (r *ImgCache) handleV1GetImage(ctx echo.Context, params api.V1GetImageParams) error {
	metrics.IncApiRequests()
	req, err := request.FromParams(request.Params{
		URI:        params.Uri,
		Width:      deref(params.W),
		Height:     deref(params.H),
		ScaleMode:  deref(params.ScaleMode),
		Transforms: deref(params.Transform),
		Mipmap:     deref(params.Mipmap),
		NoCache:    deref(params.NoCache),
		AnimateGif: params.Animate == nil || *params.Animate,
	})
	if err != nil {
		return errorResult(ctx, err)
	}
	rctx := ctx.Request().Context()
	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, r.fetchTimeout)
		defer cancel()
	}
	res, err := r.engine.Load(rctx, req)
	if err != nil {
		return errorResult(ctx, err)
	}
	info, err := res.Wait(rctx)
	if err != nil {
		return errorResult(ctx, err)
	}
	b, contentType, err := decode.EncodeBytes(info)
	if err != nil {
		log.Errorf("error encoding %s: %s", params.Uri, err)
		return ctx.NoContent(http.StatusInternalServerError)
	}
	ctx.Response().Header().Add("Etag", `"`+res.Keys().Bitmap+`"`)
	ctx.Response().Header().Add("X-Image-Origin", info.Origin.String())
	return ctx.Blob(http.StatusOK, contentType, b)
}

// GET /v1/keys
func (r *ImgCache) handleV1GetKeys(ctx echo.Context, params api.V1GetKeysParams) error {
	metrics.IncApiRequests()
	req, err := request.FromParams(request.Params{
		URI:        params.Uri,
		Width:      deref(params.W),
		Height:     deref(params.H),
		ScaleMode:  deref(params.ScaleMode),
		Transforms: deref(params.Transform),
		Mipmap:     deref(params.Mipmap),
		AnimateGif: params.Animate == nil || *params.Animate,
	})
	if err != nil {
		return errorResult(ctx, err)
	}
	k := keys.Derive(req)
	body := api.Keys{
		DownloadKey: k.Download,
		BitmapKey:   k.Bitmap,
	}
	if k.HasTransforms() {
		names := make([]string, len(k.Transforms))
		for i, t := range k.Transforms {
			names[i] = t.Key()
		}
		body.Transforms = &names
	}
	return ctx.JSON(http.StatusOK, body)
}

// statusFor maps the error kinds to http status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidRequest), errors.Is(err, errs.ErrConfigurationConflict):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrDetached):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrDecode), errors.Is(err, errs.ErrTransform):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorResult(ctx echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("error serving %s: %s", ctx.Request().URL, err)
	} else {
		log.Debugf("error serving %s: %s", ctx.Request().URL, err)
	}
	return ctx.String(status, err.Error()+"\n")
}

// deref returns the zero value for a nil pointer
func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
