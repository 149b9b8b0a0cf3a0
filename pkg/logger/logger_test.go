package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func loggedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinLogger(), GinRecovery())
	r.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("stage table corrupted")
	})
	return r
}

func TestGinLogger_GeneratesRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/id", nil)
	loggedRouter().ServeHTTP(w, req)

	id := w.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("expected a generated request id")
	}
	if w.Body.String() != id {
		t.Errorf("handler saw %q, header carries %q", w.Body.String(), id)
	}
}

func TestGinLogger_ReusesIncomingRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/id", nil)
	req.Header.Set(RequestIDHeader, "upstream-42")
	loggedRouter().ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "upstream-42" {
		t.Errorf("%s = %q, expected upstream-42", RequestIDHeader, got)
	}
}

func TestGinRecovery_Returns500(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/panic", nil)
	loggedRouter().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, expected 500", w.Code)
	}
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	Init("chatty")
	defer Init("info")
	if lvl := log.GetLevel(); lvl.String() != "info" {
		t.Errorf("level = %s, expected info", lvl)
	}
}
