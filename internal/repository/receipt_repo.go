package repository

import (
	"context"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"

	"gorm.io/gorm"
)

// ReceiptRepository defines the interface for data access of Receipt entities
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *model.Receipt) error
	GetByID(ctx context.Context, id string) (*model.Receipt, error)
	UpdateAuditedBy(ctx context.Context, id string, blob string) error
}

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository returns a new instance of ReceiptRepository
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *model.Receipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *receiptRepository) GetByID(ctx context.Context, id string) (*model.Receipt, error) {
	var receipt model.Receipt
	if err := r.db.WithContext(ctx).First(&receipt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) UpdateAuditedBy(ctx context.Context, id string, blob string) error {
	return r.db.WithContext(ctx).Model(&model.Receipt{}).
		Where("id = ?", id).
		Update("audited_by", blob).Error
}
