package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/rl1809/plant-floor/internal/core/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxRequestBody = 1 << 16

// Limits bound what a single request may ask for.
type Limits struct {
	MaxConcurrentRuns int64
	MaxWorkers        int // per worker kind
	MaxAdmitAttempts  int // applied to every run, overridable per request
}

// HTTPHandler runs simulations on demand. Every request gets its own
// simulation; concurrent runs are capped by a weighted semaphore.
type HTTPHandler struct {
	baseOpts []service.Option
	limits   Limits
	slots    *semaphore.Weighted
	logger   *zap.Logger
}

type SimulationHTTPRequest struct {
	PartWorkers      int   `json:"part_workers"`
	ProductWorkers   int   `json:"product_workers"`
	Cycles           int   `json:"cycles,omitempty"`
	Seed             int64 `json:"seed,omitempty"`
	MaxAdmitAttempts *int  `json:"max_admit_attempts,omitempty"`
}

type StatsHTTPResponse struct {
	Workers          int   `json:"workers"`
	Completed        int64 `json:"completed"`
	TimedOut         int64 `json:"timed_out"`
	ReservationsLost int64 `json:"reservations_lost"`
	Abandoned        int64 `json:"abandoned"`
	AdmitRetries     int64 `json:"admit_retries"`
	Rollbacks        int64 `json:"rollbacks"`
}

type SimulationHTTPResponse struct {
	Success bool                         `json:"success"`
	Message string                       `json:"message"`
	RunID   string                       `json:"run_id,omitempty"`
	Seed    int64                        `json:"seed,omitempty"`
	Buffer  []int                        `json:"buffer,omitempty"`
	Cart    []int                        `json:"cart,omitempty"`
	Ledger  map[string]int               `json:"ledger,omitempty"`
	Stats   map[string]StatsHTTPResponse `json:"stats,omitempty"`
}

func NewHTTPHandler(limits Limits, logger *zap.Logger, baseOpts ...service.Option) *HTTPHandler {
	if limits.MaxConcurrentRuns < 1 {
		limits.MaxConcurrentRuns = 1
	}
	return &HTTPHandler{
		baseOpts: baseOpts,
		limits:   limits,
		slots:    semaphore.NewWeighted(limits.MaxConcurrentRuns),
		logger:   logger,
	}
}

func (h *HTTPHandler) RunSimulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SimulationHTTPRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SimulationHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}
	if msg := h.checkLimits(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, SimulationHTTPResponse{
			Success: false,
			Message: msg,
		})
		return
	}

	if !h.slots.TryAcquire(1) {
		writeJSON(w, http.StatusTooManyRequests, SimulationHTTPResponse{
			Success: false,
			Message: "too many simulations running",
		})
		return
	}
	defer h.slots.Release(1)

	opts := append([]service.Option{}, h.baseOpts...)
	if h.limits.MaxAdmitAttempts > 0 {
		opts = append(opts, service.WithMaxAdmitAttempts(h.limits.MaxAdmitAttempts))
	}
	if req.Cycles != 0 {
		opts = append(opts, service.WithCycles(req.Cycles))
	}
	if req.Seed != 0 {
		opts = append(opts, service.WithSeed(req.Seed))
	}
	if req.MaxAdmitAttempts != nil {
		opts = append(opts, service.WithMaxAdmitAttempts(*req.MaxAdmitAttempts))
	}

	report, err := service.NewPlantSimulation(req.PartWorkers, req.ProductWorkers, opts...).Run(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"

		var crash *service.WorkerCrashError
		switch {
		case errors.Is(err, service.ErrInvalidConfig):
			status = http.StatusBadRequest
			message = err.Error()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
			message = "simulation cancelled"
		case errors.Is(err, service.ErrSink):
			status = http.StatusBadGateway
			message = "event sink failure"
		case errors.As(err, &crash):
			message = crash.Error()
		}

		h.logger.Error("Simulation request failed", zap.Error(err), zap.Int("status", status))
		resp := SimulationHTTPResponse{Success: false, Message: message}
		if report != nil {
			resp = toResponse(report, false, message)
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(report, true, service.FinishMessage))
}

func (h *HTTPHandler) checkLimits(req SimulationHTTPRequest) string {
	if limit := h.limits.MaxWorkers; limit > 0 && (req.PartWorkers > limit || req.ProductWorkers > limit) {
		return fmt.Sprintf("at most %d workers of each kind per simulation", limit)
	}
	if req.MaxAdmitAttempts != nil && *req.MaxAdmitAttempts < 1 {
		return "max_admit_attempts must be at least 1"
	}
	return ""
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toResponse(r *service.Report, success bool, message string) SimulationHTTPResponse {
	resp := SimulationHTTPResponse{
		Success: success,
		Message: message,
		RunID:   r.RunID,
		Seed:    r.Seed,
		Buffer:  r.Buffer[:],
		Cart:    r.Cart[:],
		Ledger:  make(map[string]int, len(r.Ledger)),
		Stats:   make(map[string]StatsHTTPResponse, len(r.Stats)),
	}
	for ref, n := range r.Ledger {
		resp.Ledger[ref.String()] = n
	}
	for kind, s := range r.Stats {
		resp.Stats[string(kind)] = StatsHTTPResponse{
			Workers:          s.Workers,
			Completed:        s.Completed,
			TimedOut:         s.TimedOut,
			ReservationsLost: s.ReservationsLost,
			Abandoned:        s.Abandoned,
			AdmitRetries:     s.AdmitRetries,
			Rollbacks:        s.Rollbacks,
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
