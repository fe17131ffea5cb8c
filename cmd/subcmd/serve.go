package subcmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aceeric/imgcache/api"
	"github.com/aceeric/imgcache/impl"
	"github.com/aceeric/imgcache/impl/config"
	"github.com/aceeric/imgcache/impl/globals"
	"github.com/aceeric/imgcache/impl/loader"
	"github.com/aceeric/imgcache/impl/metrics"
	"github.com/aceeric/imgcache/impl/preload"

	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
	middleware "github.com/oapi-codegen/echo-middleware"
	log "github.com/sirupsen/logrus"
)

const startupBanner = `----------------------------------------------------------------------
Imgcache: deduplicating, caching image fetch and transform server
Version: %s, build date: %s
Started: %s (port %d)
Running as (uid:gid) %d:%d
Process id: %d
Tls: %s
Command line: %v
----------------------------------------------------------------------
`

// listener will be initialized with the Echo listener once the Echo server
// is started.
var listener net.Listener

// Serve runs the image server, blocking until stopped with CTRL-C or via the
// command REST API.
func Serve(buildVer string, buildDtm string) error {
	tlsCfg, err := globals.ParseTls()
	if err != nil {
		return fmt.Errorf("error parsing TLS configuration: %s", err)
	}
	swagger, err := api.GetSwagger()
	if err != nil {
		return fmt.Errorf("error loading swagger spec: %s", err)
	}

	// clear out the servers array in the swagger spec, that skips validating
	// that server names match. We don't know how this thing will be run.
	swagger.Servers = nil

	metrics.InitMetrics(int(config.GetMetrics()))

	eng, tr, err := newEngine(loader.Served(config.GetFileRoot()))
	if err != nil {
		return fmt.Errorf("error initializing the engine: %s", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.GetPreloadFile() != "" {
		if _, err := preload.Load(ctx, eng, config.GetPreloadFile(), config.GetConcurrency()); err != nil {
			return fmt.Errorf("error pre-loading images: %s", err)
		}
	}
	if config.GetConfigFile() != "" {
		// image host changes take effect on the next fetch from the host
		if err := config.Watch(ctx, config.GetConfigFile(), tr.Reset); err != nil {
			return fmt.Errorf("error watching the configuration file: %s", err)
		}
	}

	shutdownCh := make(chan bool)
	imgCache := impl.NewImgCache(eng, time.Duration(config.GetFetchTimeout())*time.Millisecond, shutdownCh)

	// Echo router
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLogLevel(config.GetLogLevel()))

	// Use our validation middleware to check all requests against the OpenAPI schema.
	e.Use(middleware.OapiRequestValidator(swagger))

	api.RegisterHandlers(e, imgCache)

	e.Use(globals.GetEchoLoggingFunc())

	fmt.Fprintf(os.Stderr, startupBanner, buildVer, buildDtm, time.Unix(0, time.Now().UnixNano()), config.GetPort(),
		os.Getuid(), os.Getgid(), os.Getpid(), tlsMsg(), strings.Join(os.Args, " "))

	go health()

	// start the API server
	go func() {
		addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(int(config.GetPort())))
		if tlsCfg != nil {
			s := http.Server{
				Addr:      addr,
				Handler:   e,
				TLSConfig: tlsCfg,
			}
			if err := e.StartServer(&s); err != http.ErrServerClosed {
				e.Logger.Fatal("shutting down the server. error:", err)
			}
		} else {
			if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
				e.Logger.Fatal("shutting down the server. error:", err)
			}
		}
	}()
	err = waitForEchoListener(e)
	if err != nil {
		return errors.New("timed out waiting for Echo listener")
	}
	listener = getEchoListener(e)
	log.Info("server is running")

	<-shutdownCh
	log.Infof("received stop command - stopping")
	e.Server.Shutdown(context.Background())
	log.Infof("waiting for in-flight requests")
	eng.Wait()
	log.Infof("stopped")
	return nil
}

// echoLogLevel maps the configured level to Echo's own logger, which Echo uses for its
// startup and fatal messages
func echoLogLevel(level string) glog.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return glog.DEBUG
	case "info":
		return glog.INFO
	case "warn":
		return glog.WARN
	}
	return glog.ERROR
}

// tlsMsg formats the server TLS configuration for the startup banner
func tlsMsg() string {
	msg := "none"
	tlsCfg := config.GetServerTlsCfg()
	if tlsCfg.Cert != "" && tlsCfg.Key != "" {
		msg = fmt.Sprintf("cert=%s, key=%s", tlsCfg.Cert, tlsCfg.Key)
	}
	if tlsCfg.CA != "" {
		msg = fmt.Sprintf("%s, ca=%s", msg, tlsCfg.CA)
	}
	if msg != "none" {
		return fmt.Sprintf("%s, client verify=%s", msg, tlsCfg.ClientAuth)
	}
	return "none"
}

// health handles the /health endpoint always on plain HTTP and is not part of the
// server itself, hence a separate goroutine running an http server.
func health() {
	if config.GetHealth() != 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		http.ListenAndServe(fmt.Sprintf(":%d", config.GetHealth()), mux)
	}
}

// getEchoListener gets the Echo listener. Supports unit testing.
func getEchoListener(e *echo.Echo) net.Listener {
	if e.Listener != nil {
		return e.Listener
	}
	return e.TLSListener
}

// waitForEchoListener waits for the Listener in the Echo server to be initialized. This
// is only used in unit testing so that the unit tests can start the server on ":0" and let
// the http package assign a random port number. Supports unit testing.
func waitForEchoListener(e *echo.Echo) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if e.Listener != nil || e.TLSListener != nil {
				return nil
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// GetListener supports unit testing.
func GetListener() net.Listener {
	return listener
}

// InitListener supports unit testing.
func InitListener() {
	listener = nil
}
