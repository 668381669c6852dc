package temporal

import "fmt"

const (
	StatusChangeSignalName = "statusChange"
	CurrentStatusQueryName = "currentStatus"
)

// StatusChangeSignal asks a running lifecycle workflow to move its record.
type StatusChangeSignal struct {
	To     string `json:"to"`
	Actor  string `json:"actor,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type StatusQueryResult struct {
	Status   string   `json:"status"`
	Next     []string `json:"next"`
	Terminal bool     `json:"terminal"`
}

// WorkflowID is the lifecycle workflow id for one record.
func WorkflowID(prefix, applicationID string) string {
	return fmt.Sprintf("%s-%s", prefix, applicationID)
}
