package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quantumproof-labs/qpops/pkg/fhe"
	"github.com/quantumproof-labs/qpops/pkg/privacy"
	"github.com/quantumproof-labs/qpops/pkg/run"
	"github.com/quantumproof-labs/qpops/pkg/security"
)

// Service is the HTTP surface over the pipeline.
type Service struct {
	logger   *slog.Logger
	pipeline *run.Pipeline
	engine   *fhe.Engine
	secCtx   *security.Context
}

// NewService creates the HTTP service.
func NewService(logger *slog.Logger, pipeline *run.Pipeline, engine *fhe.Engine, secCtx *security.Context) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, pipeline: pipeline, engine: engine, secCtx: secCtx}
}

// Routes registers all handlers on a fresh mux.
func (s *Service) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/compute", s.HandleCompute)
	mux.HandleFunc("/api/quantum/simulate", s.HandleSimulate)
	mux.HandleFunc("/api/status", s.HandleStatus)
	mux.HandleFunc("/api/health", s.HandleHealth)
	return mux
}

// ComputeRequest is the submit-run payload. The profile fields are consumed
// inside the handler and never persisted or echoed back.
type ComputeRequest struct {
	CreditScore    int64   `json:"credit_score"`
	DebtToIncomeBp int64   `json:"debt_to_income_bp"`
	AnnualIncome   float64 `json:"annual_income"`
	Purpose        string  `json:"purpose"`
	Scenario       string  `json:"scenario"`
	ForceFallback  bool    `json:"force_fallback"`
}

// ComputeResponse wraps a verified run's outcome.
type ComputeResponse struct {
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint"`
	Bundle      any    `json:"bundle"`
}

// HandleCompute handles POST /api/compute.
func (s *Service) HandleCompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Scenario == "" {
		req.Scenario = "credit-risk"
	}

	profile := privacy.Profile{
		CreditScore:    req.CreditScore,
		DebtToIncomeBp: req.DebtToIncomeBp,
		AnnualIncome:   req.AnnualIncome,
		Purpose:        req.Purpose,
	}

	out, err := s.pipeline.Submit(r.Context(), profile, req.Scenario, req.ForceFallback, s.secCtx)
	if err != nil {
		s.writeRunError(w, out, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ComputeResponse{
		Status:      string(out.Status),
		Fingerprint: string(out.Fingerprint),
		Bundle:      out.Bundle,
	})
}

// writeRunError maps the pipeline's error taxonomy onto problem details.
func (s *Service) writeRunError(w http.ResponseWriter, out run.Outcome, err error) {
	switch {
	case errors.Is(err, run.ErrInvalidInput):
		WriteBadRequest(w, out.Reason)
	case errors.Is(err, run.ErrBackendUnavailable):
		WriteServiceUnavailable(w, out.Reason)
	case errors.Is(err, run.ErrVerificationFailed):
		WriteUnprocessable(w, out.Reason)
	default:
		WriteInternal(w, err)
	}
}

// SimulateRequest names the attack to simulate.
type SimulateRequest struct {
	AttackType string `json:"attack_type"`
}

// HandleSimulate handles POST /api/quantum/simulate.
func (s *Service) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	transition, err := s.secCtx.SimulateAttack(security.AttackType(req.AttackType))
	if err != nil {
		if errors.Is(err, security.ErrUnknownAttack) {
			WriteBadRequest(w, "attack_type must be one of: grover, shor")
			return
		}
		WriteInternal(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(transition)
}

// StatusResponse reports encrypted-backend availability.
type StatusResponse struct {
	Available    bool   `json:"available"`
	BackendLabel string `json:"backend_label"`
	SecurityMode string `json:"security_mode"`
}

// HandleStatus handles GET /api/status.
func (s *Service) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}

	available, label := s.engine.Status()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(StatusResponse{
		Available:    available,
		BackendLabel: label,
		SecurityMode: s.secCtx.Mode().String(),
	})
}

// HandleHealth handles GET /api/health.
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
