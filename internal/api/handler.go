package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opensource-finance/fhi/internal/assessment"
	"github.com/opensource-finance/fhi/internal/domain"
	"github.com/opensource-finance/fhi/internal/repository"
	"github.com/opensource-finance/fhi/internal/rules"
	"github.com/opensource-finance/fhi/internal/scoring"
	"github.com/opensource-finance/fhi/internal/trend"
	"github.com/opensource-finance/fhi/internal/worker"
)

// GlobalTenantID is used for achievement rules that apply to all tenants.
const GlobalTenantID = "*"

// MaxBatchSize bounds the number of profiles in one batch request.
const MaxBatchSize = 1000

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	rules     *rules.Engine
	processor *assessment.Processor
	trend     *trend.Service

	batchConcurrency int
	version          string
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		repo:             deps.Repo,
		cache:            deps.Cache,
		bus:              deps.Bus,
		rules:            deps.Rules,
		processor:        deps.Processor,
		trend:            deps.Trend,
		batchConcurrency: deps.BatchConcurrency,
		version:          deps.Version,
	}
}

// ScoreRequest is the request body for POST /score.
type ScoreRequest struct {
	UserID  string         `json:"userId,omitempty"`
	Profile domain.Profile `json:"profile"`
}

// ScoreResponse is the response for POST /score.
type ScoreResponse struct {
	AssessmentID string                `json:"assessmentId"`
	Result       domain.ScoreResult    `json:"result"`
	Tier         domain.HealthTier     `json:"tier"`
	Warnings     []string              `json:"warnings"`
	Benchmark    domain.PeerComparison `json:"benchmark"`
	Achievements []domain.Achievement  `json:"achievements"`
	Cached       bool                  `json:"cached"`
	Metadata     ResponseMetadata      `json:"metadata"`
}

// ResponseMetadata describes how a response was produced.
type ResponseMetadata struct {
	TraceID       string `json:"traceId"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion"`
	Version       string `json:"version"`
}

// ValidationResponse is returned with 422 when a profile cannot be scored.
type ValidationResponse struct {
	Error    string   `json:"error"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Score handles POST /score requests.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req ScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a, err := h.processor.Assess(ctx, tenantID, req.UserID, req.Profile)
	if err != nil {
		h.writeProcessError(w, "assessment failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ScoreResponse{
		AssessmentID: a.ID,
		Result:       a.Result,
		Tier:         a.Tier,
		Warnings:     nonNil(a.Warnings),
		Benchmark:    a.Benchmark,
		Achievements: a.Achievements,
		Cached:       a.Metadata.Cached,
		Metadata:     h.metadata(r, start),
	})
}

// BatchRequest is the request body for POST /score/batch.
type BatchRequest struct {
	Requests []assessment.ScoreRequest `json:"requests"`
}

// BatchResponse is the response for POST /score/batch.
type BatchResponse struct {
	Items     []worker.BatchItem `json:"items"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Metadata  ResponseMetadata   `json:"metadata"`
}

// ScoreBatch handles POST /score/batch requests. Each item succeeds or fails
// on its own; the response is 200 unless the batch itself is malformed.
func (h *Handler) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "requests must not be empty")
		return
	}
	if len(req.Requests) > MaxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d requests per batch", MaxBatchSize))
		return
	}

	// Batches never cross tenants.
	for i := range req.Requests {
		req.Requests[i].TenantID = ""
	}

	items, err := worker.ScoreBatch(ctx, h.processor, tenantID, req.Requests, h.batchConcurrency)
	if err != nil {
		zap.L().Error("batch scoring failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "batch scoring failed")
		return
	}

	resp := BatchResponse{Items: items, Metadata: h.metadata(r, start)}
	for _, item := range items {
		if item.Error != "" {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SimulateRequest is the request body for POST /simulate.
type SimulateRequest struct {
	Profile domain.Profile       `json:"profile"`
	Delta   domain.ScenarioDelta `json:"delta"`
}

// Simulate handles POST /simulate requests.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SimulateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sim, err := h.processor.Simulate(ctx, GetTenantID(ctx), req.Profile, req.Delta)
	if err != nil {
		h.writeProcessError(w, "simulation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

// ExplainRequest is the request body for POST /explain.
type ExplainRequest struct {
	Components domain.ComponentScores `json:"components"`
}

// ExplainResponse is the response for POST /explain.
type ExplainResponse struct {
	scoring.Explanation
	CompositeScore float64 `json:"compositeScore"`
}

// Explain handles POST /explain requests.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if errs := checkComponents(req.Components); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{
			Error:    "invalid components",
			Errors:   errs,
			Warnings: []string{},
		})
		return
	}

	exp := scoring.Explain(req.Components)
	writeJSON(w, http.StatusOK, ExplainResponse{
		Explanation:    exp,
		CompositeScore: exp.WeightedTotal + exp.BaseOffset,
	})
}

// BenchmarkRequest is the request body for POST /benchmark.
type BenchmarkRequest struct {
	Age    int                `json:"age"`
	Result domain.ScoreResult `json:"result"`
}

// Benchmark handles POST /benchmark requests.
func (h *Handler) Benchmark(w http.ResponseWriter, r *http.Request) {
	var req BenchmarkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Age < scoring.MinAge || req.Age > scoring.MaxAge {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{
			Error:    "invalid age",
			Errors:   []string{fmt.Sprintf("age must be between %d and %d, got %d", scoring.MinAge, scoring.MaxAge, req.Age)},
			Warnings: []string{},
		})
		return
	}

	writeJSON(w, http.StatusOK, scoring.Benchmark(req.Age, req.Result))
}

// GetAssessment retrieves an assessment by ID.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	a, err := h.repo.GetAssessment(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "assessment not found")
		return
	}
	if err != nil {
		zap.L().Error("failed to get assessment", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load assessment")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// ListUserAssessments returns a user's score history, newest first.
func (h *Handler) ListUserAssessments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	userID := chi.URLParam(r, "userId")

	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	history, err := h.repo.ListAssessments(ctx, tenantID, userID, limit)
	if err != nil {
		zap.L().Error("failed to list assessments", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list assessments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assessments": history,
		"count":       len(history),
	})
}

// UserTrend summarizes a user's score history over ?window= (Go duration or
// whole days such as "30d").
func (h *Handler) UserTrend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	userID := chi.URLParam(r, "userId")

	if h.trend == nil {
		writeError(w, http.StatusServiceUnavailable, "trend service not available")
		return
	}

	window, err := parseWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.trend.Trend(ctx, tenantID, userID, window)
	if err != nil {
		zap.L().Error("failed to compute trend", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute trend")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListAchievements returns the achievement rules loaded in the engine.
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	loaded := h.rules.LoadedRules()
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": loaded,
		"count":        len(loaded),
	})
}

// CreateAchievementRequest is the request body for creating an achievement rule.
type CreateAchievementRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Enabled     bool   `json:"enabled"`
}

// CreateAchievement validates and stores an achievement rule.
// Rules are saved globally so they apply to all tenants; call
// POST /achievements/reload to apply them.
func (h *Handler) CreateAchievement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAchievementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeError(w, http.StatusBadRequest, "id, name, and expression are required")
		return
	}
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	now := time.Now().UTC()
	rule := &domain.AchievementRule{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Enabled:     req.Enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.rules.Validate(rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid CEL expression: "+err.Error())
		return
	}

	if err := h.repo.SaveAchievementRule(ctx, GlobalTenantID, rule); err != nil {
		zap.L().Error("failed to save achievement rule", zap.String("id", rule.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save achievement rule")
		return
	}

	zap.L().Info("achievement rule created", zap.String("id", rule.ID), zap.String("name", rule.Name))
	writeJSON(w, http.StatusCreated, map[string]any{
		"achievement": rule,
		"message":     "Achievement rule created. Call POST /achievements/reload to apply changes.",
	})
}

// ReloadAchievements reloads all achievement rules from the repository.
func (h *Handler) ReloadAchievements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	stored, err := h.repo.ListAchievementRules(ctx, GlobalTenantID)
	if err != nil {
		zap.L().Error("failed to list achievement rules", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load achievement rules")
		return
	}

	if err := h.rules.Reload(stored); err != nil {
		zap.L().Error("failed to reload achievement rules", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to reload achievement rules: "+err.Error())
		return
	}

	zap.L().Info("achievement rules reloaded", zap.Int("count", h.rules.RulesCount()))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "achievement rules reloaded successfully",
		"count":   h.rules.RulesCount(),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.processor == nil || h.rules == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":        true,
		"achievements": h.rules.RulesCount(),
	})
}

// writeProcessError maps processor errors onto status codes.
func (h *Handler) writeProcessError(w http.ResponseWriter, msg string, err error) {
	if ve, ok := scoring.AsValidationError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{
			Error:    scoring.ErrInvalidProfile.Error(),
			Errors:   nonNil(ve.Errors),
			Warnings: nonNil(ve.Warnings),
		})
		return
	}
	zap.L().Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msg)
}

func (h *Handler) metadata(r *http.Request, start time.Time) ResponseMetadata {
	return ResponseMetadata{
		TraceID:       GetTraceID(r.Context()),
		TotalMs:       time.Since(start).Milliseconds(),
		EngineVersion: assessment.EngineVersion,
		Version:       h.version,
	}
}

func checkComponents(c domain.ComponentScores) []string {
	var errs []string
	for _, comp := range domain.Components {
		v := c.Get(comp)
		if math.IsNaN(v) || v < 0 || v > 100 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 100", comp))
		}
	}
	return errs
}

func parseWindow(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, eris.Errorf("invalid window %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, eris.Errorf("invalid window %q", raw)
	}
	return d, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Debug("failed to encode response", zap.Error(err))
	}
}
