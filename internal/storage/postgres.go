package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-sql/civil"
	"github.com/lib/pq"

	"passport-portal/internal/domain"
)

// ErrStaleStatus means the record moved on since the caller read it; the
// requested change was computed against an old status and is not applied.
var ErrStaleStatus = errors.New("status changed concurrently")

// StaleStatusError carries the status actually found on the record.
type StaleStatusError struct {
	Expected string
	Found    string
}

func (e *StaleStatusError) Error() string {
	return fmt.Sprintf("%s: expected %q, found %q", ErrStaleStatus, e.Expected, e.Found)
}

func (e *StaleStatusError) Unwrap() error { return ErrStaleStatus }

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateApplication stores a new record and opens its history with the
// initial status.
func (s *PostgresStore) CreateApplication(ctx context.Context, rec domain.ApplicationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications (id, kind, status, applicant_name, nic, birth_date, sex)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
	`, rec.ID, rec.Kind, rec.Status, rec.ApplicantName, rec.NIC, dateParam(rec.BirthDate), rec.Sex)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO status_history (application_id, from_status, to_status, actor)
		VALUES ($1, '', $2, 'applicant')
	`, rec.ID, rec.Status)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) GetApplication(ctx context.Context, applicationID string) (domain.ApplicationRecord, error) {
	var rec domain.ApplicationRecord
	var birthDate sql.NullTime
	var rejectionReason sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, status, applicant_name, nic, birth_date, COALESCE(sex, ''),
		       rejection_reason, created_at, updated_at
		FROM applications
		WHERE id = $1
	`, applicationID)
	if err := row.Scan(
		&rec.ID,
		&rec.Kind,
		&rec.Status,
		&rec.ApplicantName,
		&rec.NIC,
		&birthDate,
		&rec.Sex,
		&rejectionReason,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return domain.ApplicationRecord{}, err
	}
	if birthDate.Valid {
		d := civil.DateOf(birthDate.Time)
		rec.BirthDate = &d
	}
	if rejectionReason.Valid {
		rec.RejectionReason = &rejectionReason.String
	}
	return rec, nil
}

func (s *PostgresStore) GetApplicationStatus(ctx context.Context, applicationID string) (domain.RecordKind, string, error) {
	var kind domain.RecordKind
	var status string
	row := s.db.QueryRowContext(ctx, `SELECT kind, status FROM applications WHERE id = $1`, applicationID)
	if err := row.Scan(&kind, &status); err != nil {
		return "", "", err
	}
	return kind, status, nil
}

// ApplyStatusChange moves a record from change.From to change.To, appends
// the change to its history and writes the STATUS_CHANGED audit row in the
// same transaction. The row is locked for the duration so two officers cannot
// both act on the same source status. When recordReason is set the reason is
// also kept on the record as its rejection reason.
func (s *PostgresStore) ApplyStatusChange(ctx context.Context, change domain.StatusChange, recordReason bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	row := tx.QueryRowContext(ctx, `SELECT status FROM applications WHERE id = $1 FOR UPDATE`, change.ApplicationID)
	if err := row.Scan(&current); err != nil {
		return err
	}
	if current != change.From {
		return &StaleStatusError{Expected: change.From, Found: current}
	}

	var reason sql.NullString
	if recordReason {
		reason = sql.NullString{String: change.Reason, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $2,
		    rejection_reason = CASE WHEN $3::text IS NULL THEN rejection_reason ELSE $3::text END,
		    updated_at = NOW()
		WHERE id = $1
	`, change.ApplicationID, change.To, reason)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO status_history (application_id, from_status, to_status, actor, reason)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	`, change.ApplicationID, change.From, change.To, change.Actor, change.Reason)
	if err != nil {
		return err
	}

	if err := insertAudit(ctx, tx, change.ApplicationID, domain.AuditStatusChanged, map[string]any{
		"from":  change.From,
		"to":    change.To,
		"actor": change.Actor,
	}); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) ListStatusHistory(ctx context.Context, applicationID string) ([]domain.StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT application_id, from_status, to_status, COALESCE(actor, ''), COALESCE(reason, ''), changed_at
		FROM status_history
		WHERE application_id = $1
		ORDER BY id ASC
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.StatusChange, 0)
	for rows.Next() {
		var c domain.StatusChange
		if err := rows.Scan(&c.ApplicationID, &c.From, &c.To, &c.Actor, &c.Reason, &c.ChangedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListQueue returns the records of kind sitting in any of statuses, oldest
// update first. An empty statuses slice matches nothing.
func (s *PostgresStore) ListQueue(ctx context.Context, kind domain.RecordKind, statuses []string) ([]domain.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, status, applicant_name, updated_at
		FROM applications
		WHERE kind = $1 AND status = ANY($2)
		ORDER BY updated_at ASC
	`, kind, pq.Array(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.QueueItem, 0)
	for rows.Next() {
		var item domain.QueueItem
		if err := rows.Scan(&item.ApplicationID, &item.Kind, &item.Status, &item.ApplicantName, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PostgresStore) InsertAudit(ctx context.Context, applicationID string, state domain.AuditState, detail any) error {
	return insertAudit(ctx, s.db, applicationID, state, detail)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAudit(ctx context.Context, db execer, applicationID string, state domain.AuditState, detail any) error {
	var payload []byte
	switch v := detail.(type) {
	case nil:
		payload = []byte("{}")
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO audit_log (application_id, state, detail)
		VALUES ($1, $2, $3::jsonb)
	`, applicationID, state, string(payload))
	return err
}

func (s *PostgresStore) AttachDocument(ctx context.Context, att domain.DocumentAttachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (application_id, filename, object_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (object_key) DO NOTHING
	`, att.ApplicationID, att.Filename, att.ObjectKey)
	return err
}

func (s *PostgresStore) ListDocuments(ctx context.Context, applicationID string) ([]domain.DocumentAttachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT application_id, filename, object_key, created_at
		FROM documents
		WHERE application_id = $1
		ORDER BY created_at ASC
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.DocumentAttachment, 0)
	for rows.Next() {
		var d domain.DocumentAttachment
		if err := rows.Scan(&d.ApplicationID, &d.Filename, &d.ObjectKey, &d.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func dateParam(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
