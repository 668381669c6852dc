package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ActivityPolicyApplyStatusChange       = "apply_status_change"
	ActivityPolicyRecordRefusedTransition = "record_refused_transition"
)

type activityPolicy struct {
	StartToCloseTimeout time.Duration
	RetryPolicy         temporal.RetryPolicy
}

var activityPolicies = map[string]activityPolicy{
	ActivityPolicyApplyStatusChange: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: temporal.RetryPolicy{
			InitialInterval:        1 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        10 * time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{staleStatusErrorType, recordNotFoundErrorType},
		},
	},
	// Refusals are audit only; losing one must not wedge the workflow.
	ActivityPolicyRecordRefusedTransition: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	},
}

func ActivityOptionsFor(policyName string) (workflow.ActivityOptions, error) {
	policy, ok := activityPolicies[policyName]
	if !ok {
		return workflow.ActivityOptions{}, fmt.Errorf("unknown activity policy: %s", policyName)
	}

	retry := policy.RetryPolicy
	return workflow.ActivityOptions{
		StartToCloseTimeout: policy.StartToCloseTimeout,
		RetryPolicy:         &retry,
	}, nil
}

func mustActivityContext(ctx workflow.Context, policyName string) workflow.Context {
	ao, err := ActivityOptionsFor(policyName)
	if err != nil {
		panic(err)
	}
	return workflow.WithActivityOptions(ctx, ao)
}
