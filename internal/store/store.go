package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lumina-ai/lumina/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through
// here. Traces are read-only from the pipeline's perspective; alert and
// replay records are append/update-only and never deleted.
type Store interface {
	Ping(ctx context.Context) error

	GetTrace(ctx context.Context, traceID string) (*models.Trace, error)
	// MissingTraceIDs returns the subset of ids with no stored trace,
	// preserving input order.
	MissingTraceIDs(ctx context.Context, ids []string) ([]string, error)
	RecentCostSamples(ctx context.Context, service, endpoint string, since time.Time, limit int) ([]models.CostSample, error)
	RecentResponses(ctx context.Context, service, endpoint string, limit int) ([]string, error)

	// CreateAlert inserts an alert. Inserting an alert whose ID already
	// exists is a no-op, which makes reprocessing after a crash-before-ack
	// safe.
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	UpdateAlertStatus(ctx context.Context, id uuid.UUID, status string, opts ...AlertUpdateOption) error
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.Alert, int, error)

	CreateReplaySet(ctx context.Context, set *models.ReplaySet) error
	GetReplaySet(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error)
	UpdateReplaySetStatus(ctx context.Context, id uuid.UUID, status string, opts ...ReplayUpdateOption) error
	IncrementReplayProgress(ctx context.Context, id uuid.UUID) error
	CreateReplayResult(ctx context.Context, result *models.ReplayResult) error
	HasReplayResult(ctx context.Context, replayID uuid.UUID, traceID string) (bool, error)
	ListReplayResults(ctx context.Context, filter ReplayResultFilter) ([]*models.ReplayResult, int, error)
}

// AlertFilter narrows ListAlerts.
type AlertFilter struct {
	CustomerID  string
	ServiceName string
	AlertType   string
	Severity    string
	Status      string
	Since       time.Time
	Page        int
	Limit       int
}

// ReplayResultFilter narrows ListReplayResults.
type ReplayResultFilter struct {
	ReplayID        uuid.UUID
	ShowOnlyChanges bool
	Limit           int
	Offset          int
}

type alertUpdateParams struct {
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
}

type AlertUpdateOption func(*alertUpdateParams)

func WithAcknowledgedAt(t time.Time) AlertUpdateOption {
	return func(p *alertUpdateParams) {
		p.AcknowledgedAt = &t
	}
}

func WithResolvedAt(t time.Time) AlertUpdateOption {
	return func(p *alertUpdateParams) {
		p.ResolvedAt = &t
	}
}

type replayUpdateParams struct {
	ErrorMessage *string
}

type ReplayUpdateOption func(*replayUpdateParams)

func WithReplayError(msg string) ReplayUpdateOption {
	return func(p *replayUpdateParams) {
		p.ErrorMessage = &msg
	}
}
