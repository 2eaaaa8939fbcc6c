package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/quantumproof-labs/qpops/pkg/fhe"
	"github.com/quantumproof-labs/qpops/pkg/run"
	"github.com/quantumproof-labs/qpops/pkg/security"
	"github.com/quantumproof-labs/qpops/pkg/zkproof"
)

var (
	setupOnce      sync.Once
	sharedProver   *zkproof.Prover
	sharedVerifier *zkproof.Verifier
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	setupOnce.Do(func() {
		manager := zkproof.NewManager(quietLogger())
		sharedProver = zkproof.NewProver(quietLogger(), manager)
		sharedVerifier = zkproof.NewVerifier(quietLogger(), manager)
	})

	engine := fhe.NewEngine(quietLogger(), nil)
	pipeline := run.NewPipeline(quietLogger(), engine, sharedProver, sharedVerifier, nil, nil)
	secCtx := security.NewContext(quietLogger())
	return NewService(quietLogger(), pipeline, engine, secCtx)
}

func TestHandleComputeVerifiedRun(t *testing.T) {
	svc := newTestService(t)

	body := `{"credit_score":800,"debt_to_income_bp":2000,"annual_income":95000,"purpose":"auto","force_fallback":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/compute", strings.NewReader(body))
	rec := httptest.NewRecorder()
	svc.HandleCompute(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ComputeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "AUDITED" {
		t.Fatalf("run status = %q", resp.Status)
	}
	if resp.Fingerprint == "" || resp.Bundle == nil {
		t.Fatalf("incomplete response: %+v", resp)
	}

	// The response must never echo profile fields.
	for _, needle := range []string{"credit_score", "annual_income", "purpose", "95000"} {
		if strings.Contains(rec.Body.String(), needle) {
			t.Fatalf("response leaks %q:\n%s", needle, rec.Body.String())
		}
	}
}

func TestHandleComputeInvalidProfile(t *testing.T) {
	svc := newTestService(t)

	body := `{"credit_score":299,"debt_to_income_bp":2000,"annual_income":95000,"force_fallback":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/compute", strings.NewReader(body))
	rec := httptest.NewRecorder()
	svc.HandleCompute(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type = %q", ct)
	}

	var problem ProblemDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatal(err)
	}
	if problem.Detail == "" {
		t.Fatal("problem detail must explain the rejection")
	}
}

func TestHandleComputeMalformedBody(t *testing.T) {
	svc := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/api/compute", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	svc.HandleCompute(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleComputeWrongMethod(t *testing.T) {
	svc := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/api/compute", nil)
	rec := httptest.NewRecorder()
	svc.HandleCompute(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleSimulate(t *testing.T) {
	svc := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/api/quantum/simulate",
		strings.NewReader(`{"attack_type":"shor"}`))
	rec := httptest.NewRecorder()
	svc.HandleSimulate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var tr security.Transition
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatal(err)
	}
	if tr.Previous != "NORMAL" || tr.New != "HYBRID" {
		t.Fatalf("transition %s -> %s", tr.Previous, tr.New)
	}
}

func TestHandleSimulateUnknownAttack(t *testing.T) {
	svc := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/api/quantum/simulate",
		strings.NewReader(`{"attack_type":"sidechannel"}`))
	rec := httptest.NewRecorder()
	svc.HandleSimulate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	svc := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	svc.HandleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Available {
		t.Fatal("no backend configured, available must be false")
	}
	if resp.SecurityMode != "NORMAL" {
		t.Fatalf("security mode = %q", resp.SecurityMode)
	}
}

func TestHandleHealth(t *testing.T) {
	svc := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	svc.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(3)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("fourth request = %d, want 429", last)
	}

	// A different client is unaffected.
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "203.0.113.8:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client = %d, want 200", rec.Code)
	}
}
