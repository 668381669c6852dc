package temporal

import (
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"passport-portal/internal/domain"
)

const ApplicationLifecycleWorkflowName = "ApplicationLifecycleWorkflow"

type WorkflowInput struct {
	ApplicationID string
	Kind          domain.RecordKind
	// Status the record is in when the workflow starts. Empty means the
	// kind's initial status.
	Status string
}

type WorkflowResult struct {
	ApplicationID string
	Status        string
	Applied       int
	Refused       int
}

// ApplicationLifecycleWorkflow owns the status of one record from submission
// to a terminal status. Officers' requests arrive as statusChange signals and
// are checked against the kind's transition table here, whatever the caller
// already checked. Valid changes are persisted, refused ones are audited, and
// the workflow completes once the record is terminal.
func ApplicationLifecycleWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	machine, ok := domain.MachineFor(input.Kind)
	if !ok {
		return WorkflowResult{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown record kind %q", input.Kind), "UnknownKind", nil)
	}
	current := input.Status
	if current == "" {
		current = machine.Initial()
	}
	if !machine.Contains(current) {
		return WorkflowResult{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("status %q is not part of %s", current, machine.Name()), "UnknownStatus", nil)
	}

	result := WorkflowResult{ApplicationID: input.ApplicationID}
	logger := workflow.GetLogger(ctx)

	if err := workflow.SetQueryHandler(ctx, CurrentStatusQueryName, func() (StatusQueryResult, error) {
		return StatusQueryResult{
			Status:   current,
			Next:     machine.ValidTransitions(current),
			Terminal: machine.IsTerminal(current),
		}, nil
	}); err != nil {
		return WorkflowResult{}, err
	}

	applyCtx := mustActivityContext(ctx, ActivityPolicyApplyStatusChange)
	refusedCtx := mustActivityContext(ctx, ActivityPolicyRecordRefusedTransition)
	signalChan := workflow.GetSignalChannel(ctx, StatusChangeSignalName)

	for !machine.IsTerminal(current) {
		var sig StatusChangeSignal
		signalChan.Receive(ctx, &sig)

		err := domain.ValidateStatusChange(input.Kind, current, domain.StatusChangeRequest{
			To:     sig.To,
			Actor:  sig.Actor,
			Reason: sig.Reason,
		})
		if err != nil {
			result.Refused++
			logger.Info("status change refused", "application_id", input.ApplicationID, "from", current, "to", sig.To, "error", err.Error())
			if auditErr := workflow.ExecuteActivity(refusedCtx, (*Activities).RecordRefusedTransitionActivity, RecordRefusedTransitionInput{
				ApplicationID: input.ApplicationID,
				Kind:          input.Kind,
				From:          current,
				To:            sig.To,
				Actor:         sig.Actor,
				Error:         err.Error(),
			}).Get(ctx, nil); auditErr != nil {
				logger.Warn("failed to audit refused status change", "application_id", input.ApplicationID, "error", auditErr.Error())
			}
			continue
		}

		var applied ApplyStatusChangeOutput
		err = workflow.ExecuteActivity(applyCtx, (*Activities).ApplyStatusChangeActivity, ApplyStatusChangeInput{
			ApplicationID: input.ApplicationID,
			Kind:          input.Kind,
			From:          current,
			To:            sig.To,
			Actor:         sig.Actor,
			Reason:        sig.Reason,
			RecordReason:  machine.RequiresReason(sig.To),
		}).Get(ctx, &applied)
		if err != nil {
			var appErr *temporal.ApplicationError
			if errors.As(err, &appErr) && appErr.Type() == staleStatusErrorType {
				// Someone wrote the record outside this workflow. Follow the
				// stored value so later requests are judged against it.
				var found string
				if detailsErr := appErr.Details(&found); detailsErr == nil && machine.Contains(found) {
					logger.Warn("record status moved outside workflow", "application_id", input.ApplicationID, "expected", current, "found", found)
					current = found
					result.Refused++
					continue
				}
			}
			return WorkflowResult{}, err
		}

		logger.Info("status changed", "application_id", input.ApplicationID, "from", current, "to", applied.Status)
		current = applied.Status
		result.Applied++
	}

	result.Status = current
	return result, nil
}
