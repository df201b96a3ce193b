package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumina-ai/lumina/internal/store"
	"github.com/lumina-ai/lumina/pkg/models"
)

// Lifecycle applies operator status transitions to persisted alerts.
// Legal transitions: pending -> acknowledged -> resolved and
// pending -> resolved. Resolved is terminal. Repeating a transition or
// acknowledging a resolved alert is a no-op, never an error.
type Lifecycle struct {
	store store.Store
}

func NewLifecycle(s store.Store) *Lifecycle {
	return &Lifecycle{store: s}
}

// Acknowledge marks a pending alert as acknowledged.
func (l *Lifecycle) Acknowledge(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	alert, err := l.store.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	if alert.Status != models.AlertStatusPending {
		return alert, nil
	}

	now := time.Now().UTC()
	if err := l.store.UpdateAlertStatus(ctx, id, models.AlertStatusAcknowledged,
		store.WithAcknowledgedAt(now)); err != nil {
		return nil, fmt.Errorf("acknowledge alert: %w", err)
	}

	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedAt = &now
	return alert, nil
}

// Resolve marks an alert as resolved. Resolving directly from pending is
// legal and leaves acknowledged_at unset.
func (l *Lifecycle) Resolve(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	alert, err := l.store.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	if alert.Status == models.AlertStatusResolved {
		return alert, nil
	}

	now := time.Now().UTC()
	if err := l.store.UpdateAlertStatus(ctx, id, models.AlertStatusResolved,
		store.WithResolvedAt(now)); err != nil {
		return nil, fmt.Errorf("resolve alert: %w", err)
	}

	alert.Status = models.AlertStatusResolved
	alert.ResolvedAt = &now
	return alert, nil
}
