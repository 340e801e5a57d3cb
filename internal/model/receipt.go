package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemizedExpense is one line item within a receipt. Pure value type,
// persisted only inside the serialized itemized_expenses blob.
type ItemizedExpense struct {
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
}

// Receipt represents one proof-of-purchase attached to a claim.
// ItemizedExpenses and AuditedBy are serialized JSON blobs on the row —
// historical records may carry malformed or absent blobs, so reads go
// through the defensive decoders in serialization.go.
type Receipt struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReimbursementID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"reimbursement_id"`
	LocationName     string          `gorm:"type:varchar(255);not null" json:"location_name"`
	LocationAddress  string          `gorm:"type:varchar(255)" json:"location_address"`
	Date             time.Time       `gorm:"not null" json:"date"`
	Tax              decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax"`
	ItemizedExpenses string          `gorm:"type:jsonb" json:"itemized_expenses"` // Serialized []ItemizedExpense
	Notes            string          `gorm:"type:text" json:"notes"`
	File             string          `gorm:"type:varchar(255)" json:"file"` // Opaque attachment ref, resolved via filestore
	AuditedBy        string          `gorm:"type:jsonb" json:"audited_by"`  // Serialized set of auditor user ids
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HasAuditor reports whether auditorID is present in the receipt's auditor set.
func (r *Receipt) HasAuditor(auditorID string) bool {
	for _, id := range DecodeAuditorSet(r.AuditedBy) {
		if id == auditorID {
			return true
		}
	}
	return false
}
