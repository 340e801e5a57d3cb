package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit log action constants
const (
	AuditActionStatusChange = "status_change"
	AuditActionReceiptAudit = "receipt_audit"
	AuditActionNoteAdded    = "note_added"
)

// AuditLogEntry is a system-authored journal row, immutable once inserted.
// One row per workflow event; the only mutation the journal supports is INSERT,
// so concurrent appends to the same claim interleave instead of clobbering.
type AuditLogEntry struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReimbursementID uuid.UUID `gorm:"type:uuid;not null;index" json:"reimbursement_id"`
	Action          string    `gorm:"type:varchar(30);not null;index" json:"action"` // status_change, receipt_audit, note_added
	AuditorID       uuid.UUID `gorm:"type:uuid;not null" json:"auditor_id"`
	Auditor         *User     `gorm:"foreignKey:AuditorID" json:"auditor,omitempty"`
	Details         string    `gorm:"type:jsonb" json:"details"` // Serialized action payload (see *Payload types)
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// AuditNote is a human-authored journal row, immutable once inserted.
// Private notes are never surfaced to the submitter and never notify.
type AuditNote struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReimbursementID uuid.UUID `gorm:"type:uuid;not null;index" json:"reimbursement_id"`
	Note            string    `gorm:"type:varchar(500);not null" json:"note"`
	AuditorID       uuid.UUID `gorm:"type:uuid;not null" json:"auditor_id"`
	Auditor         *User     `gorm:"foreignKey:AuditorID" json:"auditor,omitempty"`
	IsPrivate       bool      `gorm:"not null;default:false;index" json:"is_private"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// StatusChangePayload is the Details blob for a status_change entry.
type StatusChangePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ReceiptAuditPayload is the Details blob for a receipt_audit entry.
type ReceiptAuditPayload struct {
	ReceiptID     string `json:"receipt_id"`
	ReceiptName   string `json:"receipt_name"`
	ReceiptDate   string `json:"receipt_date"`
	ReceiptAmount string `json:"receipt_amount"`
}

// NoteAddedPayload is the Details blob for a note_added entry.
type NoteAddedPayload struct {
	Preview   string `json:"preview"`
	IsPrivate bool   `json:"is_private"`
}
