package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) PingContext(context.Context) error { return f.err }

func serve(h *Handler) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return w
}

func TestHealthz_OK(t *testing.T) {
	if w := serve(New(&fakePinger{})); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHealthz_StorageDown(t *testing.T) {
	if w := serve(New(&fakePinger{err: errors.New("down")})); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHealthz_NoPinger(t *testing.T) {
	if w := serve(New(nil)); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
