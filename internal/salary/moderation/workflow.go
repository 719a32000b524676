package moderation

import (
	"context"

	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Remote is the admin REST API as seen by the workflow. Every call carries
// the caller's bearer token explicitly.
type Remote interface {
	ListPending(ctx context.Context, token string) ([]*models.SalaryRecord, error)
	ListRejected(ctx context.Context, token string) ([]*models.SalaryRecord, error)
	ListSalaries(ctx context.Context, token string, kind models.Kind) ([]*models.SalaryRecord, error)
	Approve(ctx context.Context, token string, id uuid.UUID) error
	Reject(ctx context.Context, token string, id uuid.UUID, reason string) error
	Restore(ctx context.Context, token string, id uuid.UUID) error
}

// Workflow drives moderation against a Remote. Preconditions are checked
// locally so an invalid request is never sent, and the local record only
// changes after the remote call succeeded.
type Workflow struct {
	remote Remote
	logger *zap.Logger
}

// NewWorkflow constructs a Workflow over the given remote.
func NewWorkflow(remote Remote, logger *zap.Logger) *Workflow {
	return &Workflow{
		remote: remote,
		logger: logger.Named("moderation_workflow"),
	}
}

// Pending returns the submissions awaiting review.
func (w *Workflow) Pending(ctx context.Context, token string) ([]*models.SalaryRecord, error) {
	if token == "" {
		return nil, e.ErrUnauthorized
	}
	return w.remote.ListPending(ctx, token)
}

// Rejected returns the submissions that were turned down.
func (w *Workflow) Rejected(ctx context.Context, token string) ([]*models.SalaryRecord, error) {
	if token == "" {
		return nil, e.ErrUnauthorized
	}
	return w.remote.ListRejected(ctx, token)
}

// Approved returns the approved set, optionally narrowed to one kind.
func (w *Workflow) Approved(ctx context.Context, token string, kind models.Kind) ([]*models.SalaryRecord, error) {
	if token == "" {
		return nil, e.ErrUnauthorized
	}
	return w.remote.ListSalaries(ctx, token, kind)
}

func (w *Workflow) Approve(ctx context.Context, token string, rec *models.SalaryRecord) error {
	return w.run(ctx, token, rec, ActionApprove, "")
}

func (w *Workflow) Reject(ctx context.Context, token string, rec *models.SalaryRecord, reason string) error {
	return w.run(ctx, token, rec, ActionReject, reason)
}

func (w *Workflow) Restore(ctx context.Context, token string, rec *models.SalaryRecord) error {
	return w.run(ctx, token, rec, ActionRestore, "")
}

func (w *Workflow) run(ctx context.Context, token string, rec *models.SalaryRecord, action Action, reason string) error {
	if token == "" {
		return e.ErrUnauthorized
	}
	if err := Check(rec, action, reason); err != nil {
		return err
	}

	var err error
	switch action {
	case ActionApprove:
		err = w.remote.Approve(ctx, token, rec.ID)
	case ActionReject:
		err = w.remote.Reject(ctx, token, rec.ID, reason)
	case ActionRestore:
		err = w.remote.Restore(ctx, token, rec.ID)
	}
	if err != nil {
		w.logger.Warn("moderation call failed",
			zap.Error(err),
			zap.String("salary_id", rec.ID.String()),
			zap.String("action", string(action)),
		)
		return err
	}

	// Already checked above, cannot fail.
	_ = Apply(rec, action, reason)
	w.logger.Info("salary moderated",
		zap.String("salary_id", rec.ID.String()),
		zap.String("action", string(action)),
		zap.String("state", string(rec.ModerationState)),
	)
	return nil
}
