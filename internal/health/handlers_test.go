package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/health"
)

type stubChecker struct {
	dbErr    error
	redisErr error
}

func (s stubChecker) PingDB(ctx context.Context, timeout time.Duration) error    { return s.dbErr }
func (s stubChecker) PingRedis(ctx context.Context, timeout time.Duration) error { return s.redisErr }

func TestLive(t *testing.T) {
	rec := httptest.NewRecorder()
	health.Handler{}.Live(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("live status = %d", rec.Code)
	}
}

func TestReadyAllHealthy(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}}
	rec := httptest.NewRecorder()
	handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["db"] != "ok" || body["redis"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestReadyDBDown(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{dbErr: errors.New("connection refused")}}
	rec := httptest.NewRecorder()
	handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d, want 503", rec.Code)
	}
}

func TestReadyNoChecker(t *testing.T) {
	rec := httptest.NewRecorder()
	health.Handler{}.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d, want 503", rec.Code)
	}
}
