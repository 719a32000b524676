// Package moderation defines the approval state machine for salary
// submissions.
//
// Valid transitions:
//
//	pending ──approve──► approved
//	   │                    ▲
//	   └──reject──► rejected ┘ (restore / approve)
//
// approved is terminal: nothing moves a record back to pending or rejected.
package moderation

import (
	"strings"

	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/models"
)

// Action is an admin-triggered moderation step.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionRestore Action = "restore"
)

// allowedFrom lists, per action, the states it may start from.
var allowedFrom = map[Action][]models.ModerationState{
	ActionApprove: {models.StatePending, models.StateRejected},
	ActionReject:  {models.StatePending},
	ActionRestore: {models.StateRejected},
}

var targets = map[Action]models.ModerationState{
	ActionApprove: models.StateApproved,
	ActionReject:  models.StateRejected,
	ActionRestore: models.StateApproved,
}

// ParseAction converts a raw string to an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := targets[a]; ok {
		return a, nil
	}
	return "", &e.ValidationError{Field: "action", Msg: "unknown moderation action " + s}
}

// CanTransition reports whether action may be applied to a record in state from.
func CanTransition(from models.ModerationState, action Action) bool {
	for _, s := range allowedFrom[action] {
		if s == from {
			return true
		}
	}
	return false
}

// Target returns the state a successful action leads to.
func Target(action Action) models.ModerationState {
	return targets[action]
}

// Check validates an action against the record without changing it. The
// source state is checked first; the reason only matters for ActionReject
// and must be non-blank.
func Check(rec *models.SalaryRecord, action Action, reason string) error {
	if !CanTransition(rec.ModerationState, action) {
		return &e.InvalidTransitionError{From: string(rec.ModerationState), Action: string(action)}
	}
	if action == ActionReject && strings.TrimSpace(reason) == "" {
		return &e.ValidationError{Field: "reason", Msg: "rejection reason is required"}
	}
	return nil
}

// Apply runs Check and, when it passes, moves the record to the target state.
// On error the record is left untouched.
func Apply(rec *models.SalaryRecord, action Action, reason string) error {
	if err := Check(rec, action, reason); err != nil {
		return err
	}
	rec.ModerationState = Target(action)
	if action == ActionReject {
		r := strings.TrimSpace(reason)
		rec.RejectionReason = &r
	} else {
		rec.RejectionReason = nil
	}
	return nil
}

// Approve moves a pending or rejected record to approved.
func Approve(rec *models.SalaryRecord) error { return Apply(rec, ActionApprove, "") }

// Reject moves a pending record to rejected with the given reason.
func Reject(rec *models.SalaryRecord, reason string) error {
	return Apply(rec, ActionReject, reason)
}

// Restore undoes a rejection.
func Restore(rec *models.SalaryRecord) error { return Apply(rec, ActionRestore, "") }
