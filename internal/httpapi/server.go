package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/statuscheck/internal/httpapi/middleware"
	"github.com/hamed0406/statuscheck/internal/metrics"
	"github.com/hamed0406/statuscheck/internal/service"
)

const maxBodyBytes = 1 << 20

type Options struct {
	Prefix         string   // mount point for the API, e.g. "/api"; "" mounts at root
	AllowedOrigins []string // CORS origins; "*" allows any
	RateLimitRPM   int      // per-IP requests per minute; 0 disables
	RateLimitBurst int
	TrustProxy     bool // take the client address from X-Forwarded-For / X-Real-IP
}

type Server struct {
	Logger  *zap.Logger
	Service *service.StatusCheckService
	Metrics *metrics.Registry
	opts    Options
}

func NewServer(l *zap.Logger, svc *service.StatusCheckService, m *metrics.Registry, opts Options) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if svc != nil && m != nil {
		svc.UseMetrics(m)
	}
	return &Server{Logger: l, Service: svc, Metrics: m, opts: opts}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if s.opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(apimw.AccessLog(s.Logger))
	r.Use(chimw.Recoverer)
	if s.Metrics != nil {
		r.Use(apimw.Metrics(s.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(apimw.RateLimit(s.opts.RateLimitRPM, s.opts.RateLimitBurst))

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	if s.opts.Prefix == "" {
		s.routes(r)
	} else {
		r.Route(s.opts.Prefix, s.routes)
	}
	return r
}

func (s *Server) routes(r chi.Router) {
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleListStatusChecks)
	r.Post("/status", s.handleCreateStatusCheck)

	// Preflights carrying Origin and Access-Control-Request-Method are answered
	// by the CORS middleware; bare OPTIONS requests land here.
	r.Options("/", s.handleOptions)
	r.Options("/health", s.handleOptions)
	r.Options("/status", s.handleOptions)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Service.Info())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Service.HealthCheck(r.Context()))
}

func (s *Server) handleCreateStatusCheck(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(&in)
	if err == nil {
		// exactly one JSON value; anything after it makes the body malformed
		if _, tokErr := dec.Token(); !errors.Is(tokErr, io.EOF) {
			err = errors.New("trailing data after JSON body")
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "client_name" {
			writeValidation(w, &service.ValidationError{Field: "client_name", Message: "must be a string"})
			return
		}
		writeValidation(w, &service.ValidationError{Field: "body", Message: "invalid JSON body"})
		return
	}

	sc, err := s.Service.Create(r.Context(), in)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeValidation(w, verr)
			return
		}
		s.Logger.Error("create_status_check_failed",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "could not store status check")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleListStatusChecks(w http.ResponseWriter, r *http.Request) {
	list, err := s.Service.ListAll(r.Context())
	if err != nil {
		s.Logger.Error("list_status_checks_failed",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "could not list status checks")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, POST, OPTIONS")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
