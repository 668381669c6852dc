package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxApplicantNameLen = 200

var (
	ErrUnknownKind     = errors.New("unknown record kind")
	ErrReasonRequired  = errors.New("a reason is required for this status")
	ErrTerminalStatus  = errors.New("record is in a terminal status")
	ErrUndeclaredState = errors.New("status is not part of this workflow")
)

// StatusChangeRequest is what an officer asks for: move a record to To.
type StatusChangeRequest struct {
	To     string
	Actor  string
	Reason string
}

// ValidateStatusChange applies the transition table for kind and the
// cross-field rules the table does not carry, such as the mandatory rejection
// reason. It returns nil when the change may be persisted.
func ValidateStatusChange(kind RecordKind, current string, req StatusChangeRequest) error {
	m, ok := MachineFor(kind)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if !m.Contains(req.To) {
		return fmt.Errorf("%w: %q", ErrUndeclaredState, req.To)
	}
	if m.IsTerminal(current) {
		return fmt.Errorf("%w: %q", ErrTerminalStatus, current)
	}
	if err := m.Validate(current, req.To); err != nil {
		return err
	}
	if m.RequiresReason(req.To) && strings.TrimSpace(req.Reason) == "" {
		return fmt.Errorf("%w: %q", ErrReasonRequired, req.To)
	}
	return nil
}

type ValidationResult struct {
	FailedRules []string `json:"failed_rules"`
}

// ValidateNewApplication checks the submission fields that do not depend on
// the NIC decoder.
func ValidateNewApplication(kind RecordKind, applicantName string) ValidationResult {
	failed := make([]string, 0)

	if _, ok := MachineFor(kind); !ok {
		failed = append(failed, "application.kind_known")
	}
	name := strings.TrimSpace(applicantName)
	if name == "" {
		failed = append(failed, "application.applicant_name_present")
	}
	if !utf8.ValidString(name) || utf8.RuneCountInString(name) > maxApplicantNameLen {
		failed = append(failed, "application.applicant_name_length")
	}

	return ValidationResult{FailedRules: failed}
}

func ValidationPassed(r ValidationResult) bool {
	return len(r.FailedRules) == 0
}
