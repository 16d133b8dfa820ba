package lp

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/webitel/valuegraph/internal/graph"
)

func newTestRouter(cell *graph.Cell, timeout time.Duration) *chi.Mux {
	h := &Handler{resolve: func(uuid string) (*graph.Cell, error) { return cell, nil }, timeout: timeout}
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r
}

func TestPollReturnsImmediatelyWhenReady(t *testing.T) {
	cell := graph.New()
	cell.Trigger("hello")

	router := newTestRouter(cell, time.Second)
	req := httptest.NewRequest("GET", "/cells/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPollWaitsForChangeThenReturns(t *testing.T) {
	cell := graph.New()
	router := newTestRouter(cell, 2*time.Second)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cell.Trigger("arrived")
	}()

	req := httptest.NewRequest("GET", "/cells/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPollTimesOutWithNoContent(t *testing.T) {
	cell := graph.New()
	router := newTestRouter(cell, 20*time.Millisecond)

	req := httptest.NewRequest("GET", "/cells/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 204 {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
