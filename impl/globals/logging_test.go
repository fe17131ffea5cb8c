package globals

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

func TestXlatLogLevel(t *testing.T) {
	tests := []struct {
		strLevel string
		logLevel log.Level
	}{
		{"DEBUG", log.DebugLevel},
		{"info", log.InfoLevel},
		{"WARN", log.WarnLevel},
		{"TRACE", log.TraceLevel},
		{"ERROR", log.ErrorLevel},
		{"ANYTHING-ELSE", log.FatalLevel},
	}
	for _, lvlTest := range tests {
		if xlatLogLevel(lvlTest.strLevel) != lvlTest.logLevel {
			t.FailNow()
		}
	}
}

func TestFileLogging(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	defer ConfigureLogging("error", "")
	logfile := filepath.Join(td, "logfile")
	if ConfigureLogging("DEBUG", logfile) != nil {
		t.FailNow()
	}
	log.Debug("TEST")
	content, err := os.ReadFile(logfile)
	if err != nil {
		t.FailNow()
	}
	if !strings.Contains(string(content), "level=debug msg=TEST") {
		t.FailNow()
	}
}

// Keys in request urls are shortened in the access log
func TestEchoLoggingShortensKeys(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	defer ConfigureLogging("error", "")
	logfile := filepath.Join(td, "logfile")
	ConfigureLogging("info", logfile)

	key := strings.Repeat("0123456789abcdef", 4)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/keys/"+key, nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	handler := GetEchoLoggingFunc()(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	if handler(ctx) != nil {
		t.FailNow()
	}
	content, _ := os.ReadFile(logfile)
	if !strings.Contains(string(content), "/v1/keys/0123456789 ") || strings.Contains(string(content), key) {
		t.Fail()
	}
}
