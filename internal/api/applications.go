package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"passport-portal/internal/domain"
	"passport-portal/internal/metrics"
	appTemporal "passport-portal/internal/temporal"
	"passport-portal/internal/workflow"
)

type createApplicationRequest struct {
	Kind          domain.RecordKind `json:"kind"`
	ApplicantName string            `json:"applicant_name"`
	NIC           string            `json:"nic"`
}

type applicationResponse struct {
	domain.ApplicationRecord
	StatusLabel       string                      `json:"status_label"`
	StatusDescription string                      `json:"status_description"`
	WorkflowID        string                      `json:"workflow_id"`
	Documents         []domain.DocumentAttachment `json:"documents,omitempty"`
}

type statusChangeRequest struct {
	To     string `json:"to"`
	Actor  string `json:"actor,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type transitionsResponse struct {
	ApplicationID string          `json:"application_id"`
	Kind          string          `json:"kind"`
	Status        string          `json:"status"`
	Terminal      bool            `json:"terminal"`
	Next          []stateResponse `json:"next"`
}

func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if req.Kind == "" {
		req.Kind = domain.KindPassportApplication
	}

	result := domain.ValidateNewApplication(req.Kind, req.ApplicantName)
	if !domain.ValidationPassed(result) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "failed_rules": result.FailedRules})
		return
	}
	decoded, err := h.decodeNIC(req.NIC)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "failed_rules": []string{"application.nic_valid"}})
		return
	}

	machine, _ := domain.MachineFor(req.Kind)
	birthDate := decoded.BirthDate
	rec := domain.ApplicationRecord{
		ID:            uuid.NewString(),
		Kind:          req.Kind,
		Status:        machine.Initial(),
		ApplicantName: strings.TrimSpace(req.ApplicantName),
		NIC:           strings.ToUpper(strings.TrimSpace(req.NIC)),
		BirthDate:     &birthDate,
		Sex:           domain.Sex(decoded.Sex),
	}
	if err := h.store.CreateApplication(ctx, rec); err != nil {
		h.logger.Error("failed to create application", "kind", req.Kind, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to create application"})
		return
	}
	if err := h.store.InsertAudit(ctx, rec.ID, domain.AuditSubmitted, map[string]any{"kind": rec.Kind}); err != nil {
		h.logger.Warn("failed to audit submission", "application_id", rec.ID, "error", err)
	}

	workflowID := h.workflowID(rec.ID)
	_, err = h.temporalClient.ExecuteWorkflow(ctx, h.startOptions(workflowID), appTemporal.ApplicationLifecycleWorkflowName, appTemporal.WorkflowInput{
		ApplicationID: rec.ID,
		Kind:          rec.Kind,
		Status:        rec.Status,
	})
	var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
	if err != nil && !errors.As(err, &alreadyStarted) {
		// The record stays; the first status change starts its workflow.
		h.logger.Error("failed to start lifecycle workflow", "application_id", rec.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to start workflow", "application_id": rec.ID})
		return
	}

	writeJSON(w, http.StatusCreated, applicationResponse{
		ApplicationRecord: rec,
		StatusLabel:       machine.Format(rec.Status),
		StatusDescription: machine.Describe(rec.Status),
		WorkflowID:        workflowID,
	})
}

func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request, applicationID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.store.GetApplication(ctx, applicationID)
	if err != nil {
		h.writeLookupError(w, err, "failed to fetch application")
		return
	}
	docs, err := h.store.ListDocuments(ctx, applicationID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch documents"})
		return
	}

	resp := applicationResponse{
		ApplicationRecord: rec,
		StatusLabel:       workflow.FormatStatus(rec.Status),
		StatusDescription: workflow.UnknownDescription,
		WorkflowID:        h.workflowID(rec.ID),
		Documents:         docs,
	}
	if machine, ok := domain.MachineFor(rec.Kind); ok {
		resp.StatusLabel = machine.Format(rec.Status)
		resp.StatusDescription = machine.Describe(rec.Status)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request, applicationID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	kind, status, err := h.store.GetApplicationStatus(ctx, applicationID)
	if err != nil {
		h.writeLookupError(w, err, "failed to fetch status")
		return
	}
	machine, ok := domain.MachineFor(kind)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "record has an unknown kind"})
		return
	}

	next := machine.ValidTransitions(status)
	states := make([]stateResponse, 0, len(next))
	for _, s := range next {
		states = append(states, describeState(machine, s))
	}
	writeJSON(w, http.StatusOK, transitionsResponse{
		ApplicationID: applicationID,
		Kind:          string(kind),
		Status:        status,
		Terminal:      machine.IsTerminal(status),
		Next:          states,
	})
}

// ChangeStatus checks the request against the record's transition table and
// hands it to the lifecycle workflow, which checks it again before writing.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request, applicationID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req statusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	req.To = strings.TrimSpace(req.To)

	kind, current, err := h.store.GetApplicationStatus(ctx, applicationID)
	if err != nil {
		h.writeLookupError(w, err, "failed to fetch status")
		return
	}

	err = domain.ValidateStatusChange(kind, current, domain.StatusChangeRequest{
		To:     req.To,
		Actor:  req.Actor,
		Reason: req.Reason,
	})
	if err != nil {
		h.refuse(ctx, w, applicationID, kind, current, req, err)
		return
	}

	sig := appTemporal.StatusChangeSignal{To: req.To, Actor: req.Actor, Reason: req.Reason}
	workflowID := h.workflowID(applicationID)
	err = h.temporalClient.SignalWorkflow(ctx, workflowID, "", appTemporal.StatusChangeSignalName, sig)
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		// A non-terminal record must have a running lifecycle. Start one from
		// the stored status and deliver the change to it.
		h.logger.Warn("lifecycle workflow missing, restarting from stored status", "application_id", applicationID, "status", current)
		_, err = h.temporalClient.SignalWithStartWorkflow(ctx, workflowID, appTemporal.StatusChangeSignalName, sig,
			h.startOptions(workflowID), appTemporal.ApplicationLifecycleWorkflowName, appTemporal.WorkflowInput{
				ApplicationID: applicationID,
				Kind:          kind,
				Status:        current,
			})
	}
	if err != nil {
		h.logger.Error("failed to signal lifecycle workflow", "application_id", applicationID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to signal workflow"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"application_id": applicationID,
		"from":           current,
		"to":             req.To,
		"status":         "status_change_requested",
	})
}

func (h *Handler) refuse(ctx context.Context, w http.ResponseWriter, applicationID string, kind domain.RecordKind, current string, req statusChangeRequest, cause error) {
	var code int
	switch {
	case errors.Is(cause, domain.ErrUnknownKind):
		h.logger.Error("record has an unknown kind", "application_id", applicationID, "kind", kind)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "record has an unknown kind"})
		return
	case errors.Is(cause, domain.ErrUndeclaredState):
		code = http.StatusBadRequest
	case errors.Is(cause, domain.ErrReasonRequired):
		code = http.StatusUnprocessableEntity
	default:
		// Terminal records and moves missing from the table.
		code = http.StatusConflict
	}

	h.metrics.IncrementTransition(string(kind), metrics.OutcomeRefused)
	if err := h.store.InsertAudit(ctx, applicationID, domain.AuditTransitionRefused, map[string]any{
		"from":  current,
		"to":    req.To,
		"actor": req.Actor,
		"error": cause.Error(),
	}); err != nil {
		h.logger.Warn("failed to audit refused status change", "application_id", applicationID, "error", err)
	}

	machine, _ := domain.MachineFor(kind)
	writeJSON(w, code, map[string]any{
		"error":  cause.Error(),
		"status": current,
		"next":   machine.ValidTransitions(current),
	})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request, applicationID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, _, err := h.store.GetApplicationStatus(ctx, applicationID); err != nil {
		h.writeLookupError(w, err, "failed to fetch history")
		return
	}
	items, err := h.store.ListStatusHistory(ctx, applicationID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch history"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"application_id": applicationID, "items": items})
}

// UploadDocument stores a supporting document in object storage and returns.
// The attachment row is written by the event handler when the bucket
// notification arrives.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request, applicationID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if _, _, err := h.store.GetApplicationStatus(ctx, applicationID); err != nil {
		h.writeLookupError(w, err, "failed to fetch application")
		return
	}

	if err := r.ParseMultipartForm(h.cfg.AllowedUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart payload"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file form field is required"})
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, h.cfg.AllowedUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read file"})
		return
	}
	if int64(len(body)) > h.cfg.AllowedUploadBytes {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file exceeds size limit"})
		return
	}
	if !isSupportedDocumentUpload(body) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": "only PDF, JPEG, PNG or plain text documents are accepted"})
		return
	}

	objectKey, err := h.blob.PutDocument(ctx, applicationID, header.Filename, body)
	if err != nil {
		h.logger.Error("failed to upload document", "application_id", applicationID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to upload file"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"application_id": applicationID,
		"object_key":     objectKey,
	})
}

// DownloadDocument streams back an attachment recorded for the application.
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request, applicationID, filename string) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	docs, err := h.store.ListDocuments(ctx, applicationID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch documents"})
		return
	}
	var objectKey string
	for _, d := range docs {
		if d.Filename == filename {
			objectKey = d.ObjectKey
			break
		}
	}
	if objectKey == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "document not found"})
		return
	}

	content, err := h.blob.GetDocument(ctx, objectKey)
	if err != nil {
		h.logger.Error("failed to read document", "object_key", objectKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to read document"})
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(content))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// Queue lists records of one kind by status. Without status parameters every
// non-terminal status is included.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	kind := domain.RecordKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = domain.KindPassportApplication
	}
	machine, ok := domain.MachineFor(kind)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown kind"})
		return
	}

	statuses := r.URL.Query()["status"]
	for _, s := range statuses {
		if !machine.Contains(s) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown status " + s})
			return
		}
	}
	if len(statuses) == 0 {
		for _, s := range machine.Statuses() {
			if !machine.IsTerminal(s) {
				statuses = append(statuses, s)
			}
		}
	}

	items, err := h.store.ListQueue(ctx, kind, statuses)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch queue"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "statuses": statuses, "items": items})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "application not found"})
		return
	}
	h.logger.Error(msg, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": msg})
}

func (h *Handler) workflowID(applicationID string) string {
	return appTemporal.WorkflowID(h.cfg.WorkflowIDPrefix, applicationID)
}

func (h *Handler) startOptions(workflowID string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: h.cfg.TemporalTaskQueue,
	}
}

var documentSignatures = [][]byte{
	[]byte("%PDF-"),
	{0xff, 0xd8, 0xff},
	{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a},
}

func isSupportedDocumentUpload(body []byte) bool {
	for _, sig := range documentSignatures {
		if bytes.HasPrefix(body, sig) {
			return true
		}
	}
	if len(bytes.TrimSpace(body)) == 0 || !utf8.Valid(body) {
		return false
	}
	return !bytes.ContainsRune(body, 0)
}
