package mock

import (
	"bytes"
	"crypto/tls"
	"hash/fnv"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var re = regexp.MustCompile(`https://|http://`)

// MockParams supports different configurations for the mock image server
type MockParams struct {
	Auth      AuthType
	Scheme    SchemeType
	TlsConfig *tls.Config
	CliAuth   tls.ClientAuthType
	// DelayMs delays every response, to simulate slow links and to widen the window
	// in which concurrent requests overlap
	DelayMs int
	// FailStatus, if non-zero, is returned for every image request
	FailStatus int
}

// SchemeType specifies http or https
type SchemeType string

const (
	HTTP  SchemeType = "http"
	HTTPS SchemeType = "https"
)

type AuthType string

const (
	BASIC AuthType = "basic auth"
	NONE  AuthType = "no auth"
)

const (
	// BasicUser and BasicPassword are the only credentials accepted with BASIC auth
	BasicUser     = "frobozz"
	BasicPassword = "xyzzy"
	defaultSize   = 100
)

// NewMockParams returns a 'MockParams' instance from the passed args.
func NewMockParams(auth AuthType, scheme SchemeType) MockParams {
	return MockParams{
		Auth:   auth,
		Scheme: scheme,
	}
}

// Server simply calls ServerWithCallback with no callback function
func Server(params MockParams) (*httptest.Server, string) {
	return ServerWithCallback(params, nil)
}

// ServerWithCallback runs the mock image server. It returns a ref to the server, and a
// server url (without the scheme). If a callback function is passed, it is called with
// the url path on each request, before the delay.
func ServerWithCallback(params MockParams, callback *func(string)) (*httptest.Server, string) {
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callback != nil {
			(*callback)(r.URL.Path)
		}
		if params.DelayMs != 0 {
			time.Sleep(time.Duration(params.DelayMs) * time.Millisecond)
		}
		if params.Auth == BASIC {
			if user, pass, ok := r.BasicAuth(); !ok || user != BasicUser || pass != BasicPassword {
				w.Header().Set("Www-Authenticate", `Basic realm="mock"`)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		if params.FailStatus != 0 {
			w.WriteHeader(params.FailStatus)
			return
		}
		dir, file := path.Split(r.URL.Path)
		name := strings.TrimSuffix(file, path.Ext(file))
		switch dir {
		case "/img/":
			w.Header().Set("Content-Type", "image/png")
			w.Write(PNG(intParam(r, "w", defaultSize), intParam(r, "h", defaultSize), ColorFor(name)))
		case "/anim/":
			w.Header().Set("Content-Type", "image/gif")
			w.Write(AnimatedGIF(intParam(r, "w", defaultSize), intParam(r, "h", defaultSize), intParam(r, "frames", 3)))
		case "/corrupt/":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("\x89PNG this is not really a png"))
		case "/status/":
			code, err := strconv.Atoi(file)
			if err != nil {
				code = http.StatusBadRequest
			}
			w.WriteHeader(code)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	if params.Scheme == HTTPS {
		server.TLS = params.TlsConfig
		server.TLS.ClientAuth = params.CliAuth
		server.StartTLS()
	} else {
		server.Start()
	}
	return server, re.ReplaceAllString(server.URL, "")
}

func intParam(r *http.Request, name string, dflt int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return dflt
}

// ColorFor derives a stable opaque color from a name, so tests can tell images apart
func ColorFor(name string) color.NRGBA {
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()
	return color.NRGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 255}
}

// Solid returns a w x h image filled with 'c'
func Solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// PNG returns a w x h png filled with 'c'
func PNG(w, h int, c color.Color) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Solid(w, h, c)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// AnimatedGIF returns a w x h gif with the passed number of frames, each a different
// solid color.
func AnimatedGIF(w, h, frames int) []byte {
	g := &gif.GIF{}
	for i := 0; i < frames; i++ {
		p := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
		draw.Draw(p, p.Bounds(), image.NewUniform(palette.Plan9[(i*37)%len(palette.Plan9)]), image.Point{}, draw.Src)
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, 5*(i+1))
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
