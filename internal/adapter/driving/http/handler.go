// Package httphandler is the HTTP driving adapter that serves the REST API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/prready/internal/application"
	"github.com/ericfisherdev/prready/internal/domain/model"
)

// maxBodyBytes bounds the JSON request bodies the API accepts.
const maxBodyBytes = 64 << 10

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	readiness *application.ReadinessService
	tracking  *application.TrackingService
	limiter   *application.RateLimiter
	metrics   *Metrics
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	readiness *application.ReadinessService,
	tracking *application.TrackingService,
	limiter *application.RateLimiter,
	metrics *Metrics,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		readiness: readiness,
		tracking:  tracking,
		limiter:   limiter,
		metrics:   metrics,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging, metrics and recovery middleware. The three
// analysis endpoints share one per-client rate limit.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/repos", h.ListRepos)
	mux.HandleFunc("GET /api/v1/prs", h.ListPRs)
	mux.HandleFunc("POST /api/v1/prs", h.TrackPR)
	mux.HandleFunc("POST /api/v1/prs/refresh", h.RefreshPRs)
	mux.HandleFunc("POST /api/v1/prs/{id}/refresh", h.RefreshPR)
	mux.HandleFunc("POST /api/v1/webhooks/github", h.GitHubWebhook)
	mux.HandleFunc("GET /api/v1/prs/{id}/timeline",
		rateLimited(h.limiter, h.metrics, "timeline", h.Timeline))
	mux.HandleFunc("GET /api/v1/prs/{id}/review-analysis",
		rateLimited(h.limiter, h.metrics, "review-analysis", h.ReviewAnalysis))
	mux.HandleFunc("GET /api/v1/prs/{id}/readiness",
		rateLimited(h.limiter, h.metrics, "readiness", h.Readiness))
	mux.Handle("GET /metrics", h.metrics.Handler())

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = metricsMiddleware(h.metrics, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListPRs returns tracked pull requests, optionally filtered by ?repo=owner/name.
func (h *Handler) ListPRs(w http.ResponseWriter, r *http.Request) {
	prs, err := h.tracking.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("repo")))
	if err != nil {
		h.writeServiceError(w, r, "list PRs", err)
		return
	}

	resp := make([]PRResponse, 0, len(prs))
	for _, pr := range prs {
		resp = append(resp, toPRResponse(pr))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListRepos returns every repository with at least one tracked pull request.
func (h *Handler) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.tracking.ListRepos(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "list repos", err)
		return
	}

	resp := make([]RepoResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, RepoResponse{FullName: repo.FullName, TrackedPRs: repo.TrackedPRs})
	}

	writeJSON(w, http.StatusOK, resp)
}

// TrackPR starts tracking one pull request, or with add_all every open pull
// request of a repository.
func (h *Handler) TrackPR(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AddAll {
		if req.RepoURL == "" {
			writeError(w, http.StatusBadRequest, "repo_url is required with add_all")
			return
		}
		res, err := h.tracking.Import(r.Context(), req.RepoURL)
		if err != nil {
			h.writeServiceError(w, r, "import repo", err)
			return
		}
		writeJSON(w, http.StatusCreated, ImportResponse{
			Repository: res.Repository,
			Imported:   res.Imported,
			Truncated:  res.Truncated,
		})
		return
	}

	if req.PRURL == "" {
		writeError(w, http.StatusBadRequest, "pr_url is required")
		return
	}

	pr, err := h.tracking.Track(r.Context(), req.PRURL)
	if err != nil {
		h.writeServiceError(w, r, "track PR", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPRResponse(*pr))
}

// RefreshPR re-fetches a tracked pull request and invalidates its cached readiness.
func (h *Handler) RefreshPR(w http.ResponseWriter, r *http.Request) {
	id, ok := prID(w, r)
	if !ok {
		return
	}

	res, err := h.tracking.Refresh(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "refresh PR", err)
		return
	}

	resp := RefreshResponse{Removed: res.Removed}
	if !res.Removed {
		pr := toPRResponse(res.PR)
		resp.PR = &pr
	}
	writeJSON(w, http.StatusOK, resp)
}

// RefreshPRs refreshes a batch of tracked pull requests, reporting failures
// per pull request.
func (h *Handler) RefreshPRs(w http.ResponseWriter, r *http.Request) {
	var req BatchRefreshRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.tracking.RefreshBatch(r.Context(), req.PRIDs)
	if err != nil {
		h.writeServiceError(w, r, "batch refresh", err)
		return
	}

	writeJSON(w, http.StatusOK, toBatchRefreshResponse(res))
}

// Timeline returns the fused activity timeline with markdown bodies rendered to HTML.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	id, ok := prID(w, r)
	if !ok {
		return
	}

	report, err := h.readiness.Timeline(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "build timeline", err)
		return
	}

	writeJSON(w, http.StatusOK, toTimelineResponse(report))
}

// ReviewAnalysis returns feedback loops and review health.
func (h *Handler) ReviewAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := prID(w, r)
	if !ok {
		return
	}

	report, err := h.readiness.ReviewAnalysis(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "analyze reviews", err)
		return
	}

	writeJSON(w, http.StatusOK, toReviewAnalysisResponse(report))
}

// Readiness returns the readiness verdict. X-Cache reports whether it came from cache.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	id, ok := prID(w, r)
	if !ok {
		return
	}

	report, err := h.readiness.Assess(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "assess readiness", err)
		return
	}

	h.metrics.cacheLookup(report.CacheHit)
	cacheStatus := "MISS"
	if report.CacheHit {
		cacheStatus = "HIT"
	}
	w.Header().Set("X-Cache", cacheStatus)
	w.Header().Set("Cache-Control", "private, max-age=600")

	writeJSON(w, http.StatusOK, toReadinessResponse(report))
}

// prID parses the {id} path value, writing a 400 response when it is not a positive integer.
func prID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid PR id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps application errors to HTTP status codes. Unexpected
// errors are logged and reported without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, model.ErrPRNotFound):
		writeError(w, http.StatusNotFound, "pull request not found")
	case errors.Is(err, model.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrUpstreamUnavailable):
		h.logger.Warn("github unavailable", "op", op, "request_id", requestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusBadGateway, "GitHub is unavailable, try again later")
	default:
		h.logger.Error("request failed", "op", op, "request_id", requestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
