package repository

import (
	"context"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"

	"gorm.io/gorm"
)

// AuditRepository defines the interface for the append-only journal rows.
// Appends are single INSERTs; there is no update or delete of journal history.
type AuditRepository interface {
	AppendLog(ctx context.Context, entry *model.AuditLogEntry) error
	AppendNote(ctx context.Context, note *model.AuditNote) error
	ListLogs(ctx context.Context, reimbursementID string, page, limit int) ([]model.AuditLogEntry, int64, error)
	ListNotes(ctx context.Context, reimbursementID string, includePrivate bool, page, limit int) ([]model.AuditNote, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository returns a new instance of AuditRepository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) AppendLog(ctx context.Context, entry *model.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) AppendNote(ctx context.Context, note *model.AuditNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *auditRepository) ListLogs(ctx context.Context, reimbursementID string, page, limit int) ([]model.AuditLogEntry, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&model.AuditLogEntry{}).
		Where("reimbursement_id = ?", reimbursementID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	var logs []model.AuditLogEntry
	err := r.db.WithContext(ctx).
		Preload("Auditor").
		Where("reimbursement_id = ?", reimbursementID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *auditRepository) ListNotes(ctx context.Context, reimbursementID string, includePrivate bool, page, limit int) ([]model.AuditNote, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.AuditNote{}).
		Where("reimbursement_id = ?", reimbursementID)
	if !includePrivate {
		base = base.Where("is_private = ?", false)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := r.db.WithContext(ctx).
		Preload("Auditor").
		Where("reimbursement_id = ?", reimbursementID)
	if !includePrivate {
		fetch = fetch.Where("is_private = ?", false)
	}

	var notes []model.AuditNote
	err := fetch.
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notes).Error
	if err != nil {
		return nil, 0, err
	}

	return notes, total, nil
}
