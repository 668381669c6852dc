package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"passport-portal/internal/domain"
)

type AttachmentStore interface {
	GetApplicationStatus(ctx context.Context, applicationID string) (domain.RecordKind, string, error)
	AttachDocument(ctx context.Context, att domain.DocumentAttachment) error
	InsertAudit(ctx context.Context, applicationID string, state domain.AuditState, detail any) error
}

// AttachHandler records each uploaded object against its application.
// Uploads under an unknown application id are logged and dropped so one stray
// object cannot stop the stream.
func AttachHandler(store AttachmentStore, logger hclog.Logger) func(context.Context, UploadEvent) error {
	return func(ctx context.Context, event UploadEvent) error {
		if _, _, err := store.GetApplicationStatus(ctx, event.ApplicationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				logger.Warn("upload for unknown application", "application_id", event.ApplicationID, "object_key", event.ObjectKey)
				return nil
			}
			return fmt.Errorf("look up application %s: %w", event.ApplicationID, err)
		}

		if err := store.AttachDocument(ctx, domain.DocumentAttachment{
			ApplicationID: event.ApplicationID,
			Filename:      event.Filename,
			ObjectKey:     event.ObjectKey,
		}); err != nil {
			return fmt.Errorf("attach object %s: %w", event.ObjectKey, err)
		}
		if err := store.InsertAudit(ctx, event.ApplicationID, domain.AuditDocumentAttached, map[string]any{
			"object_key": event.ObjectKey,
			"event":      event.EventName,
		}); err != nil {
			logger.Warn("failed to audit attachment", "application_id", event.ApplicationID, "error", err)
		}

		logger.Info("document attached", "application_id", event.ApplicationID, "object_key", event.ObjectKey)
		return nil
	}
}
