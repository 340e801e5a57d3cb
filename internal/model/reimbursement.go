package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enum constants for the reimbursement workflow.
// Legal order: submitted -> under_review -> approved -> in_progress -> paid.
// rejected is reachable from any non-terminal status; paid and rejected are terminal.
const (
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under_review"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusInProgress  = "in_progress"
	StatusPaid        = "paid"
)

// Department enum constants
const (
	DeptInternal = "internal"
	DeptExternal = "external"
	DeptProjects = "projects"
	DeptEvents   = "events"
	DeptOther    = "other"
)

// Reimbursement represents one expense claim moving through the approval workflow.
// Receipts are independent records owned through ReimbursementID; audit logs and
// notes are append-only rows keyed by the claim id.
type Reimbursement struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title          string          `gorm:"type:varchar(255);not null" json:"title"`
	Department     string          `gorm:"type:varchar(20);not null;index" json:"department"` // internal, external, projects, events, other
	DateOfPurchase time.Time       `gorm:"not null;index" json:"date_of_purchase"`
	PaymentMethod  string          `gorm:"type:varchar(50)" json:"payment_method"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount"` // Derived: sum of receipt totals
	AdditionalInfo string          `gorm:"type:text" json:"additional_info"`
	Status         string          `gorm:"type:varchar(20);not null;default:'submitted';index" json:"status"`
	SubmittedBy    uuid.UUID       `gorm:"type:uuid;not null;index" json:"submitted_by"`
	Submitter      *User           `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
	Receipts       []Receipt       `gorm:"foreignKey:ReimbursementID" json:"receipts,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsTerminalStatus reports whether no further transition is legal from status.
func IsTerminalStatus(status string) bool {
	return status == StatusPaid || status == StatusRejected
}

// ValidStatus reports whether status is one of the workflow statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusInProgress, StatusPaid:
		return true
	}
	return false
}

// ValidDepartment reports whether dept is one of the department enum values.
func ValidDepartment(dept string) bool {
	switch dept {
	case DeptInternal, DeptExternal, DeptProjects, DeptEvents, DeptOther:
		return true
	}
	return false
}
