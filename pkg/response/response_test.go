package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]string{"stage": "intake"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	if resp.Message != "ok" {
		t.Errorf("expected message 'ok', got %q", resp.Message)
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, map[string]int{"id": 1})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if resp := parseResponse(t, w); resp.Message != "created" {
		t.Errorf("expected message 'created', got %q", resp.Message)
	}
}

func TestConvenienceHelpers(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(*gin.Context, string)
		status int
	}{
		{"bad request", BadRequest, http.StatusBadRequest},
		{"unauthorized", Unauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden, http.StatusForbidden},
		{"not found", NotFound, http.StatusNotFound},
		{"conflict", Conflict, http.StatusConflict},
		{"server error", ServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(func(c *gin.Context) {
				tt.fn(c, tt.name)
			})
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			resp := parseResponse(t, w)
			if resp.Code != tt.status {
				t.Errorf("expected code %d, got %d", tt.status, resp.Code)
			}
			if resp.Message != tt.name {
				t.Errorf("expected message %q, got %q", tt.name, resp.Message)
			}
		})
	}
}

func TestError_WithAppError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, NewBadRequest("validation failed"))
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if resp := parseResponse(t, w); resp.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %q", resp.Message)
	}
}

func TestError_MapsSentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperrors.ErrNotFound, http.StatusNotFound},
		{apperrors.ErrForbidden, http.StatusForbidden},
		{apperrors.ErrStageMismatch, http.StatusConflict},
		{apperrors.ErrConflict, http.StatusConflict},
		{apperrors.ErrInvalidAction, http.StatusBadRequest},
		{apperrors.ErrValidation, http.StatusBadRequest},
	}

	for _, tt := range tests {
		wrapped := fmt.Errorf("project 7: %w", tt.err)
		w := performRequest(func(c *gin.Context) {
			Error(c, wrapped)
		})
		if w.Code != tt.status {
			t.Errorf("%v: expected status %d, got %d", tt.err, tt.status, w.Code)
		}
		if resp := parseResponse(t, w); resp.Message != wrapped.Error() {
			t.Errorf("%v: expected message %q, got %q", tt.err, wrapped.Error(), resp.Message)
		}
	}
}

func TestError_WithGenericError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("something went wrong"))
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestAppError_ErrorInterface(t *testing.T) {
	err := NewNotFound("project not found")
	if err.Error() != "project not found" {
		t.Errorf("expected 'project not found', got %q", err.Error())
	}
}
