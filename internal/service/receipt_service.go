package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ReceiptResponse is the API shape of a receipt with derived fields resolved.
type ReceiptResponse struct {
	ID               string                  `json:"id"`
	ReimbursementID  string                  `json:"reimbursement_id"`
	LocationName     string                  `json:"location_name"`
	LocationAddress  string                  `json:"location_address"`
	Date             string                  `json:"date"`
	Tax              string                  `json:"tax"`
	ItemizedExpenses []model.ItemizedExpense `json:"itemized_expenses"`
	Notes            string                  `json:"notes"`
	File             string                  `json:"file"`
	FileURL          string                  `json:"file_url,omitempty"`
	AuditedBy        []string                `json:"audited_by"`
	Total            string                  `json:"total"`
}

// ReceiptService is the receipt audit ledger: per-receipt sign-off tracking
// and the derived-total / fully-audited computations consulted by the status
// state machine.
type ReceiptService interface {
	GetReceipt(ctx context.Context, id string) (*ReceiptResponse, error)
	// AuditReceipt records auditorID's sign-off on the receipt (set
	// semantics, re-audit is a no-op on the set) and journals a
	// receipt_audit entry on the owning claim. Log entries record
	// attempts, so a repeat invocation still appends a log row.
	AuditReceipt(ctx context.Context, receiptID, auditorID string) (*ReceiptResponse, error)
	// ComputeTotal derives sum(itemized amounts) + tax. A malformed
	// itemized-expenses blob yields zero, never an error.
	ComputeTotal(receipt *model.Receipt) decimal.Decimal
	// IsFullyAudited reports whether every receipt on the claim carries
	// auditorID in its auditor set. The gate is per approving user, not
	// "audited by anyone" — see the status service notes.
	IsFullyAudited(reimb *model.Reimbursement, auditorID string) bool
}

type receiptService struct {
	receiptRepo repository.ReceiptRepository
	auditRepo   repository.AuditRepository
	hub         interface{ GetBroadcast() chan []byte } // optional websocket hub
}

// NewReceiptService returns a new instance of ReceiptService. hub may be nil.
func NewReceiptService(receiptRepo repository.ReceiptRepository, auditRepo repository.AuditRepository, hub interface{ GetBroadcast() chan []byte }) ReceiptService {
	return &receiptService{receiptRepo: receiptRepo, auditRepo: auditRepo, hub: hub}
}

func (s *receiptService) GetReceipt(ctx context.Context, id string) (*ReceiptResponse, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("receipt not found: %w", err)
	}
	resp := s.toReceiptResponse(receipt)
	return &resp, nil
}

func (s *receiptService) AuditReceipt(ctx context.Context, receiptID, auditorID string) (*ReceiptResponse, error) {
	if auditorID == "" {
		return nil, ErrUnauthenticated
	}
	auditorUUID, err := uuid.Parse(auditorID)
	if err != nil {
		return nil, fmt.Errorf("invalid auditor id: %w", err)
	}

	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("receipt not found: %w", err)
	}

	set := model.DecodeAuditorSet(receipt.AuditedBy)
	set, added := model.AddAuditor(set, auditorID)
	if added {
		if err := s.receiptRepo.UpdateAuditedBy(ctx, receiptID, model.EncodeAuditorSet(set)); err != nil {
			return nil, fmt.Errorf("failed to persist auditor sign-off: %w", err)
		}
	}

	// The journal lives on the owning claim, not on the receipt.
	payload, _ := json.Marshal(model.ReceiptAuditPayload{
		ReceiptID:     receipt.ID.String(),
		ReceiptName:   receipt.LocationName,
		ReceiptDate:   receipt.Date.Format("2006-01-02"),
		ReceiptAmount: s.ComputeTotal(receipt).StringFixed(2),
	})
	entry := &model.AuditLogEntry{
		ReimbursementID: receipt.ReimbursementID,
		Action:          model.AuditActionReceiptAudit,
		AuditorID:       auditorUUID,
		Details:         string(payload),
	}
	if err := s.auditRepo.AppendLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to journal receipt audit: %w", err)
	}

	s.broadcastRefresh(receipt.ReimbursementID.String())

	// Re-fetch so the returned state matches what was persisted
	fresh, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload receipt: %w", err)
	}
	resp := s.toReceiptResponse(fresh)
	return &resp, nil
}

func (s *receiptService) ComputeTotal(receipt *model.Receipt) decimal.Decimal {
	items, ok := model.DecodeItemizedExpenses(receipt.ItemizedExpenses)
	if !ok {
		return decimal.Zero
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total.Add(receipt.Tax)
}

func (s *receiptService) IsFullyAudited(reimb *model.Reimbursement, auditorID string) bool {
	if auditorID == "" {
		return false
	}
	for i := range reimb.Receipts {
		if !reimb.Receipts[i].HasAuditor(auditorID) {
			return false
		}
	}
	return true
}

func (s *receiptService) broadcastRefresh(reimbursementID string) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(map[string]string{
		"event": "reimbursement.updated",
		"id":    reimbursementID,
	})
	if err != nil {
		return
	}
	select {
	case s.hub.GetBroadcast() <- msg:
	default:
		log.Warn().Str("reimbursement_id", reimbursementID).Msg("ws broadcast channel full, dropping event")
	}
}

func (s *receiptService) toReceiptResponse(r *model.Receipt) ReceiptResponse {
	items, _ := model.DecodeItemizedExpenses(r.ItemizedExpenses)
	return ReceiptResponse{
		ID:               r.ID.String(),
		ReimbursementID:  r.ReimbursementID.String(),
		LocationName:     r.LocationName,
		LocationAddress:  r.LocationAddress,
		Date:             r.Date.Format("2006-01-02"),
		Tax:              r.Tax.StringFixed(2),
		ItemizedExpenses: items,
		Notes:            r.Notes,
		File:             r.File,
		AuditedBy:        model.DecodeAuditorSet(r.AuditedBy),
		Total:            s.ComputeTotal(r).StringFixed(2),
	}
}
