package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/statuscheck/internal/domain"
	"github.com/hamed0406/statuscheck/internal/metrics"
	"github.com/hamed0406/statuscheck/internal/repo"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	DatabaseConnected    = "connected"
	DatabaseDisconnected = "disconnected"
)

// CreateInput is the create request. ClientName is a pointer so a missing
// field can be told apart from an empty one in logs.
type CreateInput struct {
	ClientName *string `json:"client_name"`
}

// Health is the composite status reported to monitors.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Info is the root greeting.
type Info struct {
	Message string `json:"message"`
}

// StatusCheckService validates input, stamps id and timestamp, and delegates
// to the store.
type StatusCheckService struct {
	store   repo.StatusCheckStore
	newID   func() string
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Registry

	// mu orders stamp+insert so stored timestamps never decrease.
	mu   sync.Mutex
	last domain.Timestamp
}

type Option func(*StatusCheckService)

// WithIDFunc replaces the UUID generator, e.g. with a deterministic sequence in tests.
func WithIDFunc(f func() string) Option {
	return func(s *StatusCheckService) { s.newID = f }
}

// WithClock replaces time.Now.
func WithClock(f func() time.Time) Option {
	return func(s *StatusCheckService) { s.now = f }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *StatusCheckService) { s.log = l }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(s *StatusCheckService) { s.metrics = m }
}

// UseMetrics sets the registry when none was configured. Call it before the
// service handles requests.
func (s *StatusCheckService) UseMetrics(m *metrics.Registry) {
	if s.metrics == nil {
		s.metrics = m
	}
}

// Metrics returns the registry the service records to, or nil.
func (s *StatusCheckService) Metrics() *metrics.Registry { return s.metrics }

func New(store repo.StatusCheckStore, opts ...Option) *StatusCheckService {
	s := &StatusCheckService{
		store: store,
		newID: uuid.NewString,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates in, builds a new record and persists it.
func (s *StatusCheckService) Create(ctx context.Context, in CreateInput) (domain.StatusCheck, error) {
	if err := validate(in); err != nil {
		if s.metrics != nil {
			s.metrics.ValidationFailures.Inc()
		}
		return domain.StatusCheck{}, err
	}

	s.mu.Lock()
	sc := domain.StatusCheck{
		ID:         s.newID(),
		ClientName: *in.ClientName,
		Timestamp:  s.stamp(),
	}
	start := time.Now()
	out, err := s.store.Insert(ctx, sc)
	s.mu.Unlock()
	s.observe("insert", start, err)
	if err != nil {
		s.log.Error("status_check_insert_failed",
			zap.String("id", sc.ID),
			zap.String("client_name", sc.ClientName),
			zap.Error(err),
		)
		return domain.StatusCheck{}, &StorageError{Op: "insert", Err: err}
	}

	if s.metrics != nil {
		s.metrics.StatusChecksCreated.Inc()
	}
	s.log.Info("status_check_created",
		zap.String("id", out.ID),
		zap.String("client_name", out.ClientName),
		zap.String("timestamp", out.Timestamp.String()),
	)
	return out, nil
}

// ListAll returns every stored record in insertion order.
func (s *StatusCheckService) ListAll(ctx context.Context) ([]domain.StatusCheck, error) {
	start := time.Now()
	out, err := s.store.ListAll(ctx)
	s.observe("list", start, err)
	if err != nil {
		s.log.Error("status_check_list_failed", zap.Error(err))
		return nil, &StorageError{Op: "list", Err: err}
	}
	if out == nil {
		out = []domain.StatusCheck{}
	}
	return out, nil
}

// HealthCheck probes the store. It never fails; an unreachable store is
// reported in the result.
func (s *StatusCheckService) HealthCheck(ctx context.Context) Health {
	start := time.Now()
	err := s.store.Ping(ctx)
	s.observe("ping", start, err)
	if err != nil {
		s.log.Warn("health_check_store_unreachable", zap.Error(err))
		if s.metrics != nil {
			s.metrics.DatabaseConnected.Set(0)
		}
		return Health{Status: StatusUnhealthy, Database: DatabaseDisconnected}
	}
	if s.metrics != nil {
		s.metrics.DatabaseConnected.Set(1)
	}
	return Health{Status: StatusHealthy, Database: DatabaseConnected}
}

func (s *StatusCheckService) Info() Info {
	return Info{Message: "Hello World"}
}

func validate(in CreateInput) error {
	if in.ClientName == nil {
		return &ValidationError{Field: "client_name", Message: "field required"}
	}
	if strings.TrimSpace(*in.ClientName) == "" {
		return &ValidationError{Field: "client_name", Message: "must not be empty"}
	}
	return nil
}

// stamp returns the current time, never earlier than the previous stamp.
// Callers hold s.mu.
func (s *StatusCheckService) stamp() domain.Timestamp {
	ts := domain.NewTimestamp(s.now())
	if ts.Before(s.last.Time) {
		ts = s.last
	}
	s.last = ts
	return ts
}

func (s *StatusCheckService) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.StoreOperationsTotal.WithLabelValues(op, outcome).Inc()
	s.metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
