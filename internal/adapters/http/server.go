// Package httpadapter exposes discovery runs, single verifications and the
// classifier over HTTP.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/metrics"
	"leadscout/internal/ports"
	"leadscout/internal/services/classify"
	"leadscout/internal/services/runs"
	"leadscout/internal/workers/discoveryrunner"
)

// Verifier checks one business synchronously.
type Verifier interface {
	Verify(ctx context.Context, rec *domain.BusinessRecord) (domain.VerificationResult, error)
}

type Config struct {
	// WaitTimeout caps the wait=true path of POST /discoveries.
	WaitTimeout time.Duration
}

type Server struct {
	cfg       Config
	runs      ports.RunRepository
	jobs      ports.JobRepository
	processor discoveryrunner.Processor
	verifier  Verifier
	metrics   *metrics.Metrics
	validate  *validator.Validate
	logger    *zap.Logger
}

func New(cfg Config, runs ports.RunRepository, jobs ports.JobRepository, processor discoveryrunner.Processor, verifier Verifier, m *metrics.Metrics, logger *zap.Logger) *Server {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		runs:      runs,
		jobs:      jobs,
		processor: processor,
		verifier:  verifier,
		metrics:   m,
		validate:  validator.New(),
		logger:    logger.Named("http"),
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.getHealthz)
	r.Handle("/metrics", s.metrics.Handler())
	r.Route("/discoveries", func(r chi.Router) {
		r.Post("/", s.postDiscovery)
		r.Get("/{id}", s.getDiscovery)
		r.Get("/{id}/businesses", s.getDiscoveryBusinesses)
	})
	r.Post("/verifications", s.postVerification)
	r.Post("/classifications", s.postClassification)
	return r
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runAccepted struct {
	RunID string `json:"runId"`
}

func (s *Server) postDiscovery(w http.ResponseWriter, r *http.Request) {
	var q domain.SearchQuery
	if !s.readJSON(w, r, &q) {
		return
	}
	q = runs.Normalize(q)
	if !s.valid(w, q) {
		return
	}
	var wait bool
	if err := runtime.BindQueryParameter("form", true, false, "wait", r.URL.Query(), &wait); err != nil {
		writeError(w, http.StatusBadRequest, "invalid wait parameter")
		return
	}
	var timeout int
	if err := runtime.BindQueryParameter("form", true, false, "timeout", r.URL.Query(), &timeout); err != nil {
		writeError(w, http.StatusBadRequest, "invalid timeout parameter")
		return
	}

	id, err := s.runs.Create(r.Context(), q)
	if err != nil {
		s.internalError(w, "create run", err)
		return
	}
	if !wait {
		writeJSON(w, http.StatusAccepted, runAccepted{RunID: id})
		return
	}

	d := s.cfg.WaitTimeout
	if timeout > 0 && time.Duration(timeout)*time.Second < d {
		d = time.Duration(timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), d)
	defer cancel()
	if err := discoveryrunner.ProcessInline(ctx, s.jobs, s.processor, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// a background worker claimed the job first
			writeJSON(w, http.StatusAccepted, runAccepted{RunID: id})
			return
		}
		s.logger.Info("inline discovery failed", zap.String("run", id), zap.Error(err))
	}
	run, err := s.runs.Get(context.WithoutCancel(ctx), id)
	if err != nil {
		s.internalError(w, "load run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getDiscovery(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "discovery run not found")
		return
	}
	if err != nil {
		s.internalError(w, "load run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getDiscoveryBusinesses(w http.ResponseWriter, r *http.Request) {
	recs, err := s.runs.Results(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "discovery run not found")
		return
	}
	if err != nil {
		s.internalError(w, "load results", err)
		return
	}
	if recs == nil {
		recs = []domain.BusinessRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

type verificationRequest struct {
	Name         string `json:"name" validate:"required"`
	Address      string `json:"address"`
	KnownWebsite string `json:"knownWebsite"`
}

func (s *Server) postVerification(w http.ResponseWriter, r *http.Request) {
	var req verificationRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	req.Name, req.Address = domain.CleanText(req.Name), domain.CleanText(req.Address)
	if !s.valid(w, req) {
		return
	}
	rec := domain.BusinessRecord{
		Name:         req.Name,
		Address:      req.Address,
		KnownWebsite: req.KnownWebsite,
		DiscoveredAt: time.Now().UTC(),
	}
	res, err := s.verifier.Verify(r.Context(), &rec)
	if err != nil {
		s.internalError(w, "verify", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type classificationRequest struct {
	Text string `json:"text" validate:"required"`
}

type classificationResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func (s *Server) postClassification(w http.ResponseWriter, r *http.Request) {
	var req classificationRequest
	if !s.decode(w, r, &req) {
		return
	}
	cat, conf := classify.Classify(req.Text)
	writeJSON(w, http.StatusOK, classificationResponse{Category: cat, Confidence: conf})
}

// decode reads a JSON body into dst and validates it, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return s.readJSON(w, r, dst) && s.valid(w, dst)
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) valid(w http.ResponseWriter, v any) bool {
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
