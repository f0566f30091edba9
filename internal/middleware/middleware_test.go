package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dice-offline/internal/logger"
	"dice-offline/internal/middleware"
	"dice-offline/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTableSession(t *testing.T) {
	router := gin.New()
	router.Use(middleware.TableSession())

	var seen, fromCtx string
	router.GET("/", func(c *gin.Context) {
		seen = c.GetString(middleware.TableIDKey)
		fromCtx, _ = c.Request.Context().Value(logger.TableIDKey).(string)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.TableCookie {
		t.Fatalf("expected a table cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("table cookie should be http only")
	}
	if seen != cookies[0].Value || fromCtx != seen {
		t.Errorf("table id not propagated: cookie=%s gin=%s ctx=%s", cookies[0].Value, seen, fromCtx)
	}

	existing := models.GenerateTableID()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TableCookie, Value: existing})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if seen != existing || len(w.Result().Cookies()) != 0 {
		t.Errorf("existing table should be kept, got %s", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TableCookie, Value: "forged"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if seen == "forged" || len(w.Result().Cookies()) != 1 {
		t.Error("malformed table id should be replaced")
	}
}

func TestNoStore(t *testing.T) {
	router := gin.New()
	router.Use(middleware.NoStore())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	previous := logger.L()
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(previous)

	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("levels = %v, %v", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["path"] != "/broken" {
		t.Errorf("unexpected fields %v", entries[1].ContextMap())
	}
	if entries[0].ContextMap()["request_id"] == nil {
		t.Error("request id should be attached to the log line")
	}
}
