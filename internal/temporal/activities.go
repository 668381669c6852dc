package temporal

import (
	"context"
	"database/sql"
	"errors"

	"go.temporal.io/sdk/temporal"

	"passport-portal/internal/domain"
	"passport-portal/internal/metrics"
	"passport-portal/internal/storage"
)

const (
	staleStatusErrorType    = "StaleStatus"
	recordNotFoundErrorType = "RecordNotFound"
)

type ActivityStore interface {
	// ApplyStatusChange must write the status, the history row and the
	// STATUS_CHANGED audit entry atomically.
	ApplyStatusChange(ctx context.Context, change domain.StatusChange, recordReason bool) error
	InsertAudit(ctx context.Context, applicationID string, state domain.AuditState, detail any) error
}

type Activities struct {
	Store   ActivityStore
	Metrics *metrics.Metrics
}

type ApplyStatusChangeInput struct {
	ApplicationID string
	Kind          domain.RecordKind
	From          string
	To            string
	Actor         string
	Reason        string
	RecordReason  bool
}

type ApplyStatusChangeOutput struct {
	Status string
}

type RecordRefusedTransitionInput struct {
	ApplicationID string
	Kind          domain.RecordKind
	From          string
	To            string
	Actor         string
	Error         string
}

// ApplyStatusChangeActivity persists a change the workflow has already
// validated. The store writes the history row and the audit entry together
// with the status, so a retry after a lost response finds the record already
// in To and succeeds without writing either twice.
func (a *Activities) ApplyStatusChangeActivity(ctx context.Context, input ApplyStatusChangeInput) (ApplyStatusChangeOutput, error) {
	err := a.Store.ApplyStatusChange(ctx, domain.StatusChange{
		ApplicationID: input.ApplicationID,
		From:          input.From,
		To:            input.To,
		Actor:         input.Actor,
		Reason:        input.Reason,
	}, input.RecordReason)

	var stale *storage.StaleStatusError
	switch {
	case err == nil:
	case errors.As(err, &stale) && stale.Found == input.To:
		return ApplyStatusChangeOutput{Status: input.To}, nil
	case errors.As(err, &stale):
		return ApplyStatusChangeOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), staleStatusErrorType, err, stale.Found)
	case errors.Is(err, sql.ErrNoRows):
		return ApplyStatusChangeOutput{}, temporal.NewNonRetryableApplicationError("application not found", recordNotFoundErrorType, err)
	default:
		return ApplyStatusChangeOutput{}, err
	}

	a.Metrics.IncrementTransition(string(input.Kind), metrics.OutcomeApplied)
	return ApplyStatusChangeOutput{Status: input.To}, nil
}

func (a *Activities) RecordRefusedTransitionActivity(ctx context.Context, input RecordRefusedTransitionInput) error {
	a.Metrics.IncrementTransition(string(input.Kind), metrics.OutcomeRefused)
	return a.Store.InsertAudit(ctx, input.ApplicationID, domain.AuditTransitionRefused, map[string]any{
		"from":  input.From,
		"to":    input.To,
		"actor": input.Actor,
		"error": input.Error,
	})
}
