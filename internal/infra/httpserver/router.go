package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cyberveli/internal/application/analysis"
	"github.com/bryanwahyu/cyberveli/internal/domain/classify"
	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
	"github.com/bryanwahyu/cyberveli/internal/infra/pdf"
	"github.com/bryanwahyu/cyberveli/internal/middleware"
)

var errBadRequest = errors.New("bad request")

// Options configures the HTTP surface around the analysis service.
type Options struct {
	Logger            *zap.Logger
	APIKeys           map[string]string
	CORSOrigins       []string
	Limiter           *middleware.RateLimiter
	HealthCheckers    map[string]middleware.HealthChecker
	// ReadinessCheckers gate /readyz; keep them to hard dependencies.
	ReadinessCheckers map[string]middleware.HealthChecker
	MaxUploadBytes    int64
}

type Router struct {
	svc       *analysis.Service
	log       *zap.Logger
	maxUpload int64
}

func NewRouter(svc *analysis.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = analysis.DefaultMaxBytes
	}
	r := &Router{svc: svc, log: opts.Logger, maxUpload: opts.MaxUploadBytes}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(opts.Logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/readyz", middleware.ReadinessHandler(opts.ReadinessCheckers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		rt.Use(middleware.RequireValidTenant)
		if opts.Limiter != nil {
			rt.Use(middleware.RateLimit(opts.Limiter))
		}

		rt.Post("/uploads", r.wrap(r.handleUpload))
		rt.Get("/history", r.wrap(r.handleList))
		rt.Delete("/history", r.wrap(r.handleClear))
		rt.Route("/history/{id}", func(rr chi.Router) {
			rr.Get("/", r.wrap(r.handleGet))
			rr.Delete("/", r.wrap(r.handleRemove))
			rr.Post("/analyze", r.wrap(r.handleAnalyze))
			rr.Get("/failures", r.wrap(r.handleFailures))
			rr.Get("/report.pdf", r.wrap(r.handlePDF))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, analysis.ErrInvalidFile):
			writeError(w, http.StatusBadRequest, analysis.ErrInvalidFile.Error())
		case errors.Is(err, errBadRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, analysis.ErrImageUnavailable):
			r.log.Error("image unavailable", zap.String("path", req.URL.Path), zap.Error(err))
			writeError(w, http.StatusInternalServerError, analysis.ErrImageUnavailable.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, domain.ErrNotPending):
			writeError(w, http.StatusConflict, "record already analyzed")
		case errors.Is(err, classify.ErrUnavailable):
			writeError(w, http.StatusBadGateway, "classification service unavailable")
		default:
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

// recordResponse adds the highlighted class to a record.
type recordResponse struct {
	*domain.Record
	TopClass string `json:"top_class,omitempty"`
}

func toResponse(rec *domain.Record) recordResponse {
	top, _ := rec.Analysis.TopClass()
	return recordResponse{Record: rec, TopClass: top}
}

// POST /v1/{tenant}/uploads  (multipart, field "file")
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	// sisakan ruang untuk header multipart
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+1<<20)
	file, header, err := req.FormFile("file")
	if err != nil {
		middleware.IncrementUploadsRejected()
		return fmt.Errorf("%w: %v", analysis.ErrInvalidFile, err)
	}
	defer file.Close()

	name := middleware.SanitizeString(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if err := middleware.ValidateJPEG(name, contentType); err != nil {
		middleware.IncrementUploadsRejected()
		return fmt.Errorf("%w: %v", analysis.ErrInvalidFile, err)
	}

	data, err := io.ReadAll(io.LimitReader(file, r.maxUpload+1))
	if err != nil {
		return err
	}

	rec, err := r.svc.Upload(req.Context(), analysis.UploadCommand{
		TenantID:    tenant,
		FileName:    name,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidFile) {
			middleware.IncrementUploadsRejected()
		}
		return err
	}
	middleware.IncrementUploads()

	return writeJSON(w, http.StatusCreated, toResponse(rec))
}

// GET /v1/{tenant}/history?limit=20
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.svc.List(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	out := make([]recordResponse, 0, len(list))
	for _, rec := range list {
		out = append(out, toResponse(rec))
	}
	return writeJSON(w, http.StatusOK, out)
}

// DELETE /v1/{tenant}/history
func (r *Router) handleClear(w http.ResponseWriter, req *http.Request) error {
	n, err := r.svc.Clear(req.Context(), chi.URLParam(req, "tenant"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// GET /v1/{tenant}/history/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := recordParams(req)
	if err != nil {
		return err
	}
	rec, err := r.svc.Get(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, toResponse(rec))
}

// DELETE /v1/{tenant}/history/{id}
func (r *Router) handleRemove(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := recordParams(req)
	if err != nil {
		return err
	}
	if err := r.svc.Remove(req.Context(), tenant, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/{tenant}/history/{id}/analyze
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := recordParams(req)
	if err != nil {
		return err
	}

	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRunning()
	rec, err := r.svc.Analyze(req.Context(), tenant, id)
	middleware.DecrementAnalysesRunning()
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	if rec.ReportSource == domain.ReportSourceFallback {
		middleware.IncrementReportFallbacks()
	}
	return writeJSON(w, http.StatusOK, toResponse(rec))
}

// GET /v1/{tenant}/history/{id}/failures?limit=20
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := recordParams(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.svc.ListFailures(req.Context(), tenant, id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/history/{id}/report.pdf
func (r *Router) handlePDF(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := recordParams(req)
	if err != nil {
		return err
	}
	// render dulu ke buffer supaya error masih bisa jadi JSON
	var buf bytes.Buffer
	if err := r.svc.ExportPDF(req.Context(), tenant, id, &buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, err = buf.WriteTo(w)
	return err
}

func recordParams(req *http.Request) (string, domain.RecordID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return "", "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return chi.URLParam(req, "tenant"), domain.RecordID(id), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
