// Package controller implements the service layer for salary submissions:
// CRUD over the repository, the moderation transitions, and insights over
// the approved set. Every write emits an event.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gartstein/salaries/internal/salary/db"
	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/events"
	"github.com/gartstein/salaries/internal/salary/insights"
	"github.com/gartstein/salaries/internal/salary/metrics"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/gartstein/salaries/internal/salary/moderation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, salary *models.SalaryRecord)
}

// Repository defines the storage interface for salary records.
type Repository interface {
	CreateSalary(ctx context.Context, rec *models.SalaryRecord) error
	GetSalary(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error)
	UpdateSalary(ctx context.Context, rec *models.SalaryRecord) error
	DeleteSalary(ctx context.Context, id uuid.UUID) error
	ListSalaries(ctx context.Context, opts db.ListOptions) ([]*models.SalaryRecord, error)
	TransitionSalary(ctx context.Context, id uuid.UUID, from, to models.ModerationState, reason *string) error
	Close() error
}

var moderationEvents = map[moderation.Action]events.EventType{
	moderation.ActionApprove: events.SalaryApproved,
	moderation.ActionReject:  events.SalaryRejected,
	moderation.ActionRestore: events.SalaryRestored,
}

type SalaryService struct {
	repo     Repository
	producer EventProducer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewSalaryService(repo Repository, producer EventProducer, m *metrics.Metrics, logger *zap.Logger) *SalaryService {
	return &SalaryService{
		repo:     repo,
		producer: producer,
		metrics:  m,
		logger:   logger.Named("salary_service"),
	}
}

// CreateSalary stores a new submission. The record always enters the queue
// as pending, whatever state the caller sent.
func (s *SalaryService) CreateSalary(ctx context.Context, rec *models.SalaryRecord) (*models.SalaryRecord, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: missing salary", e.ErrInvalidInput)
	}
	if rec.Kind == "" {
		rec.Kind = models.KindSalary
	}
	rec.ID = uuid.New()
	rec.ModerationState = models.StatePending
	rec.RejectionReason = nil

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateSalary(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create salary: %w", err)
	}
	s.metrics.IncrementCreated()

	go func() {
		s.producer.Produce(events.SalaryCreated, rec)
	}()
	return rec, nil
}

// GetSalary retrieves a record by ID, returning ErrNotFound if absent.
func (s *SalaryService) GetSalary(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error) {
	rec, err := s.repo.GetSalary(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get salary: %w", err)
	}
	return rec, nil
}

// UpdateSalary merges update into the stored record, re-validates the
// result and persists the editable fields. Moderation state is untouched.
func (s *SalaryService) UpdateSalary(ctx context.Context, update *models.SalaryUpdate) (*models.SalaryRecord, error) {
	if update == nil || update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid salary ID", e.ErrInvalidInput)
	}
	id := update.ID

	current, err := s.GetSalary(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := update.Apply(current)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSalary(ctx, merged); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update salary: %w", err)
	}

	updated, err := s.repo.GetSalary(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get salary for event",
			zap.Error(err),
			zap.String("salary_id", id.String()),
		)
		return nil, err
	}
	go func() {
		s.producer.Produce(events.SalaryUpdated, updated)
	}()
	return updated, nil
}

// DeleteSalary removes a record by ID and fires a deletion event.
func (s *SalaryService) DeleteSalary(ctx context.Context, id uuid.UUID) error {
	rec, err := s.GetSalary(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteSalary(ctx, id); err != nil {
		return fmt.Errorf("failed to delete salary: %w", err)
	}

	go func() {
		s.producer.Produce(events.SalaryDeleted, rec)
	}()
	return nil
}

func (s *SalaryService) ListPending(ctx context.Context) ([]*models.SalaryRecord, error) {
	return s.list(ctx, db.ListOptions{State: models.StatePending})
}

func (s *SalaryService) ListRejected(ctx context.Context) ([]*models.SalaryRecord, error) {
	return s.list(ctx, db.ListOptions{State: models.StateRejected})
}

// ListApproved returns the published records. An empty kind returns both
// salaries and stories.
func (s *SalaryService) ListApproved(ctx context.Context, kind models.Kind) ([]*models.SalaryRecord, error) {
	return s.list(ctx, db.ListOptions{State: models.StateApproved, Kind: kind})
}

func (s *SalaryService) list(ctx context.Context, opts db.ListOptions) ([]*models.SalaryRecord, error) {
	recs, err := s.repo.ListSalaries(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list salaries: %w", err)
	}
	return recs, nil
}

func (s *SalaryService) Approve(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error) {
	return s.moderate(ctx, id, moderation.ActionApprove, "")
}

func (s *SalaryService) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.SalaryRecord, error) {
	return s.moderate(ctx, id, moderation.ActionReject, reason)
}

func (s *SalaryService) Restore(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error) {
	return s.moderate(ctx, id, moderation.ActionRestore, "")
}

// moderate applies action to the stored record. The write is conditional on
// the state read here, so two admins racing on one record cannot both win.
func (s *SalaryService) moderate(
	ctx context.Context,
	id uuid.UUID,
	action moderation.Action,
	reason string,
) (*models.SalaryRecord, error) {
	current, err := s.GetSalary(ctx, id)
	if err != nil {
		s.metrics.ObserveModeration(string(action), outcome(err))
		return nil, err
	}

	next := current.Clone()
	if err := moderation.Apply(next, action, reason); err != nil {
		s.metrics.ObserveModeration(string(action), outcome(err))
		return nil, err
	}

	err = s.repo.TransitionSalary(ctx, id, current.ModerationState, next.ModerationState, next.RejectionReason)
	if err != nil {
		s.metrics.ObserveModeration(string(action), outcome(err))
		s.logger.Warn("Moderation write failed",
			zap.Error(err),
			zap.String("salary_id", id.String()),
			zap.String("action", string(action)),
		)
		if errors.Is(err, e.ErrConflict) || errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to %s salary: %w", action, err)
	}
	s.metrics.ObserveModeration(string(action), outcome(nil))

	s.logger.Info("Salary moderated",
		zap.String("salary_id", id.String()),
		zap.String("action", string(action)),
		zap.String("state", string(next.ModerationState)),
	)

	go func() {
		s.producer.Produce(moderationEvents[action], next)
	}()
	return next, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, e.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, e.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, e.ErrConflict):
		return "conflict"
	case errors.Is(err, e.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// Insights aggregates the approved salaries and stories matching c.
func (s *SalaryService) Insights(ctx context.Context, c insights.Criteria) (insights.Summary, error) {
	recs, err := s.ListApproved(ctx, "")
	if err != nil {
		return insights.Summary{}, err
	}

	start := time.Now()
	summary := insights.Summarize(insights.Filter(recs, c))
	s.metrics.ObserveInsights(start)
	return summary, nil
}

// ExportCSV writes the approved records matching c as CSV.
func (s *SalaryService) ExportCSV(ctx context.Context, w io.Writer, c insights.Criteria) error {
	recs, err := s.ListApproved(ctx, "")
	if err != nil {
		return err
	}
	if err := insights.WriteCSV(w, insights.Filter(recs, c)); err != nil {
		return fmt.Errorf("failed to export salaries: %w", err)
	}
	return nil
}

// SearchPending is the moderation queue narrowed by a free-text query over
// company, designation and department.
func (s *SalaryService) SearchPending(ctx context.Context, query string) ([]*models.SalaryRecord, error) {
	recs, err := s.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return insights.SearchModeration(recs, query), nil
}
