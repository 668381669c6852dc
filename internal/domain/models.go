package domain

import (
	"time"

	"github.com/golang-sql/civil"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ApplicationRecord is the persisted form of any workflow record. Status holds
// the literal value of the kind's status enum.
type ApplicationRecord struct {
	ID              string      `json:"id"`
	Kind            RecordKind  `json:"kind"`
	Status          string      `json:"status"`
	ApplicantName   string      `json:"applicant_name"`
	NIC             string      `json:"nic"`
	BirthDate       *civil.Date `json:"birth_date,omitempty"`
	Sex             Sex         `json:"sex,omitempty"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// StatusChange is one entry of a record's append-only status history.
type StatusChange struct {
	ApplicationID string    `json:"application_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Actor         string    `json:"actor,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
}

type DocumentAttachment struct {
	ApplicationID string    `json:"application_id"`
	Filename      string    `json:"filename"`
	ObjectKey     string    `json:"object_key"`
	CreatedAt     time.Time `json:"created_at"`
}

// QueueItem is one row of the staff work queue.
type QueueItem struct {
	ApplicationID string     `json:"application_id"`
	Kind          RecordKind `json:"kind"`
	Status        string     `json:"status"`
	ApplicantName string     `json:"applicant_name"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
