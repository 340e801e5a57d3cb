package service

import (
	"context"
	"fmt"
	"time"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/filestore"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateReceiptDTO struct {
	LocationName     string                  `json:"location_name" binding:"required"`
	LocationAddress  string                  `json:"location_address"`
	Date             string                  `json:"date" binding:"required"` // YYYY-MM-DD
	Tax              string                  `json:"tax"`
	ItemizedExpenses []model.ItemizedExpense `json:"itemized_expenses" binding:"required"`
	Notes            string                  `json:"notes"`
	File             string                  `json:"file"` // ref from the files upload endpoint
}

type CreateReimbursementDTO struct {
	Title          string             `json:"title" binding:"required"`
	Department     string             `json:"department" binding:"required,oneof=internal external projects events other"`
	DateOfPurchase string             `json:"date_of_purchase" binding:"required"` // YYYY-MM-DD
	PaymentMethod  string             `json:"payment_method" binding:"required"`
	AdditionalInfo string             `json:"additional_info"`
	Receipts       []CreateReceiptDTO `json:"receipts" binding:"required,min=1,dive"`
}

type ReimbursementResponse struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Department     string            `json:"department"`
	DateOfPurchase string            `json:"date_of_purchase"`
	PaymentMethod  string            `json:"payment_method"`
	TotalAmount    string            `json:"total_amount"`
	AdditionalInfo string            `json:"additional_info"`
	Status         string            `json:"status"`
	SubmittedBy    string            `json:"submitted_by"`
	SubmitterName  string            `json:"submitter_name"`
	Receipts       []ReceiptResponse `json:"receipts"`
	CreatedAt      string            `json:"created_at"`
}

// ReimbursementService covers claim submission and detail reads. All status
// mutation goes through StatusService; all journal mutation through
// JournalService and ReceiptService.
type ReimbursementService interface {
	Create(ctx context.Context, actorID string, req CreateReimbursementDTO) (*ReimbursementResponse, error)
	GetByID(ctx context.Context, id string) (*ReimbursementResponse, error)
}

type reimbursementService struct {
	reimbRepo  repository.ReimbursementRepository
	receiptSvc ReceiptService
	files      filestore.Store
}

// NewReimbursementService returns a new instance of ReimbursementService. files may be nil.
func NewReimbursementService(reimbRepo repository.ReimbursementRepository, receiptSvc ReceiptService, files filestore.Store) ReimbursementService {
	return &reimbursementService{reimbRepo: reimbRepo, receiptSvc: receiptSvc, files: files}
}

func (s *reimbursementService) Create(ctx context.Context, actorID string, req CreateReimbursementDTO) (*ReimbursementResponse, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	submitterID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	if !model.ValidDepartment(req.Department) {
		return nil, fmt.Errorf("invalid department %q", req.Department)
	}

	purchaseDate, err := time.Parse("2006-01-02", req.DateOfPurchase)
	if err != nil {
		return nil, fmt.Errorf("invalid date_of_purchase: %w", err)
	}

	total := decimal.Zero
	receipts := make([]model.Receipt, 0, len(req.Receipts))
	for i, r := range req.Receipts {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date on receipt %d: %w", i+1, err)
		}

		tax := decimal.Zero
		if r.Tax != "" {
			tax, err = decimal.NewFromString(r.Tax)
			if err != nil {
				return nil, fmt.Errorf("invalid tax on receipt %d: %w", i+1, err)
			}
		}

		for _, item := range r.ItemizedExpenses {
			if item.Amount.IsNegative() {
				return nil, fmt.Errorf("negative amount on receipt %d", i+1)
			}
			total = total.Add(item.Amount)
		}
		total = total.Add(tax)

		receipts = append(receipts, model.Receipt{
			LocationName:     r.LocationName,
			LocationAddress:  r.LocationAddress,
			Date:             date,
			Tax:              tax,
			ItemizedExpenses: model.EncodeItemizedExpenses(r.ItemizedExpenses),
			Notes:            r.Notes,
			File:             r.File,
			AuditedBy:        model.EncodeAuditorSet(nil),
		})
	}

	reimb := &model.Reimbursement{
		Title:          req.Title,
		Department:     req.Department,
		DateOfPurchase: purchaseDate,
		PaymentMethod:  req.PaymentMethod,
		TotalAmount:    total,
		AdditionalInfo: req.AdditionalInfo,
		Status:         model.StatusSubmitted,
		SubmittedBy:    submitterID,
		Receipts:       receipts,
	}
	if err := s.reimbRepo.Create(ctx, reimb); err != nil {
		return nil, fmt.Errorf("failed to create reimbursement: %w", err)
	}

	return s.GetByID(ctx, reimb.ID.String())
}

func (s *reimbursementService) GetByID(ctx context.Context, id string) (*ReimbursementResponse, error) {
	reimb, err := s.reimbRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reimbursement not found: %w", err)
	}

	resp := toReimbursementResponse(reimb, s.receiptSvc)
	if s.files != nil {
		for i := range resp.Receipts {
			if resp.Receipts[i].File == "" {
				continue
			}
			url, err := s.files.GetFileURL(reimb.ID, resp.Receipts[i].File, true)
			if err != nil {
				log.Warn().Err(err).Str("ref", resp.Receipts[i].File).Msg("failed to resolve receipt file url")
				continue
			}
			resp.Receipts[i].FileURL = url
		}
	}
	return &resp, nil
}

// --- Helpers ---

func toReimbursementResponse(r *model.Reimbursement, receiptSvc ReceiptService) ReimbursementResponse {
	resp := ReimbursementResponse{
		ID:             r.ID.String(),
		Title:          r.Title,
		Department:     r.Department,
		DateOfPurchase: r.DateOfPurchase.Format("2006-01-02"),
		PaymentMethod:  r.PaymentMethod,
		TotalAmount:    r.TotalAmount.StringFixed(2),
		AdditionalInfo: r.AdditionalInfo,
		Status:         r.Status,
		SubmittedBy:    r.SubmittedBy.String(),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if r.Submitter != nil {
		resp.SubmitterName = r.Submitter.Username
	}

	resp.Receipts = make([]ReceiptResponse, 0, len(r.Receipts))
	for i := range r.Receipts {
		rec := &r.Receipts[i]
		items, _ := model.DecodeItemizedExpenses(rec.ItemizedExpenses)
		total := decimal.Zero
		if receiptSvc != nil {
			total = receiptSvc.ComputeTotal(rec)
		}
		resp.Receipts = append(resp.Receipts, ReceiptResponse{
			ID:               rec.ID.String(),
			ReimbursementID:  rec.ReimbursementID.String(),
			LocationName:     rec.LocationName,
			LocationAddress:  rec.LocationAddress,
			Date:             rec.Date.Format("2006-01-02"),
			Tax:              rec.Tax.StringFixed(2),
			ItemizedExpenses: items,
			Notes:            rec.Notes,
			File:             rec.File,
			AuditedBy:        model.DecodeAuditorSet(rec.AuditedBy),
			Total:            total.StringFixed(2),
		})
	}
	return resp
}
