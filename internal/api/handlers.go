package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"

	"passport-portal/internal/config"
	"passport-portal/internal/domain"
	"passport-portal/internal/metrics"
	"passport-portal/internal/nic"
	"passport-portal/internal/workflow"
)

type Handler struct {
	cfg            config.Config
	store          applicationStore
	blob           documentBlobStore
	temporalClient workflowClient
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	logger         hclog.Logger
	now            func() time.Time
}

type applicationStore interface {
	Ping(ctx context.Context) error
	CreateApplication(ctx context.Context, rec domain.ApplicationRecord) error
	GetApplication(ctx context.Context, applicationID string) (domain.ApplicationRecord, error)
	GetApplicationStatus(ctx context.Context, applicationID string) (domain.RecordKind, string, error)
	ListStatusHistory(ctx context.Context, applicationID string) ([]domain.StatusChange, error)
	ListQueue(ctx context.Context, kind domain.RecordKind, statuses []string) ([]domain.QueueItem, error)
	ListDocuments(ctx context.Context, applicationID string) ([]domain.DocumentAttachment, error)
	InsertAudit(ctx context.Context, applicationID string, state domain.AuditState, detail any) error
}

type documentBlobStore interface {
	PutDocument(ctx context.Context, applicationID, filename string, content []byte) (string, error)
	GetDocument(ctx context.Context, objectKey string) ([]byte, error)
}

// workflowClient is the part of client.Client the API drives.
type workflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
	SignalWithStartWorkflow(ctx context.Context, workflowID string, signalName string, signalArg interface{},
		options client.StartWorkflowOptions, workflow interface{}, workflowArgs ...interface{}) (client.WorkflowRun, error)
}

func NewHandler(
	cfg config.Config,
	store applicationStore,
	blob documentBlobStore,
	temporalClient workflowClient,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	logger hclog.Logger,
) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Handler{
		cfg:            cfg,
		store:          store,
		blob:           blob,
		temporalClient: temporalClient,
		metrics:        m,
		gatherer:       gatherer,
		logger:         logger,
		now:            time.Now,
	}
}

type nicDecodeRequest struct {
	NIC string `json:"nic"`
}

type nicDecodeResponse struct {
	Format    nic.Format `json:"format"`
	Sex       nic.Sex    `json:"sex"`
	BirthDate civil.Date `json:"birth_date"`
	DayCode   int        `json:"day_code"`
	Age       int        `json:"age"`
}

func (h *Handler) DecodeNIC(w http.ResponseWriter, r *http.Request) {
	var req nicDecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	res, err := h.decodeNIC(req.NIC)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, nicDecodeResponse{
		Format:    res.Format,
		Sex:       res.Sex,
		BirthDate: res.BirthDate,
		DayCode:   res.DayCode,
		Age:       res.Age(civil.DateOf(h.now())),
	})
}

// decodeNIC trims surrounding whitespace from user input and counts the
// attempt.
func (h *Handler) decodeNIC(raw string) (nic.Result, error) {
	raw = strings.TrimSpace(raw)
	res, err := nic.Decode(raw)

	format := "unknown"
	switch len(raw) {
	case 10:
		format = string(nic.Legacy)
	case 12:
		format = string(nic.Modern)
	}
	outcome := "ok"
	switch {
	case errors.Is(err, nic.ErrInvalidFormat):
		outcome = "invalid_format"
	case errors.Is(err, nic.ErrInvalidDayOrdinal):
		outcome = "invalid_day"
	}
	h.metrics.IncrementNICDecode(format, outcome)
	return res, err
}

type stateResponse struct {
	Status         string   `json:"status"`
	Label          string   `json:"label"`
	Description    string   `json:"description"`
	ReasonRequired bool     `json:"reason_required"`
	Terminal       bool     `json:"terminal"`
	Next           []string `json:"next"`
}

type workflowResponse struct {
	Kind    domain.RecordKind `json:"kind"`
	Initial string            `json:"initial"`
	States  []stateResponse   `json:"states"`
}

func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"kinds": domain.Kinds()})
}

func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request, kind string) {
	machine, ok := domain.MachineFor(domain.RecordKind(kind))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown workflow"})
		return
	}

	statuses := machine.Statuses()
	states := make([]stateResponse, 0, len(statuses))
	for _, s := range statuses {
		states = append(states, describeState(machine, s))
	}
	writeJSON(w, http.StatusOK, workflowResponse{
		Kind:    domain.RecordKind(kind),
		Initial: machine.Initial(),
		States:  states,
	})
}

func describeState(machine workflow.Machine, status string) stateResponse {
	return stateResponse{
		Status:         status,
		Label:          machine.Format(status),
		Description:    machine.Describe(status),
		ReasonRequired: machine.RequiresReason(status),
		Terminal:       machine.IsTerminal(status),
		Next:           machine.ValidTransitions(status),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
