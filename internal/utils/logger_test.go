package utils

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestContextLoggerAssignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	router := gin.New()
	router.Use(ContextLogger(logger))
	router.GET("/", func(c *gin.Context) {
		GetLoggerFromContext(c, NewDiscardLogger()).Info("inside handler")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Contains(t, buf.String(), "request_id="+generated)

	buf.Reset()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	req.Header.Set(DeviceIDHeader, "tablet-7")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "device_id=tablet-7")
}

func TestGetLoggerFromContextFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	fallback := NewDiscardLogger()
	assert.Same(t, fallback, GetLoggerFromContext(c, fallback))
}

func TestLogRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	logger.LogRequest(http.MethodGet, "/x", http.StatusInternalServerError, "1ms")
	assert.Contains(t, buf.String(), "level=ERROR")

	buf.Reset()
	logger.LogRequest(http.MethodGet, "/x", http.StatusNotFound, "1ms")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestToSlogLogger(t *testing.T) {
	base := slog.Default()
	assert.Same(t, base, ToSlogLogger(NewSlogLogger(base)))
	assert.NotNil(t, ToSlogLogger(NewDiscardLogger()))
}
