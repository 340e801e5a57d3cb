package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"

	"gorm.io/gorm"
)

// ErrStatusConflict is returned by TransitionStatus when the claim's persisted
// status no longer matches the expected predecessor (concurrent transition).
var ErrStatusConflict = errors.New("reimbursement status changed concurrently")

// ListQuery describes a filtered, sorted fetch of reimbursements.
// A nil/empty field means "no constraint". Limit <= 0 disables paging
// (used by the client-side search mode, which needs the full set).
type ListQuery struct {
	Statuses        []string
	Departments     []string
	Since           *time.Time // date_of_purchase cutoff
	ExcludeStatuses []string   // auto-hide of paid/rejected
	SortField       string     // date_of_purchase, total_amount, status
	SortDesc        bool
	Offset          int
	Limit           int
}

// ReimbursementRepository defines the interface for data access of Reimbursement entities
type ReimbursementRepository interface {
	Create(ctx context.Context, reimb *model.Reimbursement) error
	GetByID(ctx context.Context, id string) (*model.Reimbursement, error)
	List(ctx context.Context, q ListQuery) ([]model.Reimbursement, int64, error)
	// TransitionStatus atomically moves the claim from `from` to `to` and
	// inserts the accompanying status_change journal row in one transaction.
	TransitionStatus(ctx context.Context, id string, from, to string, entry *model.AuditLogEntry) error
}

type reimbursementRepository struct {
	db *gorm.DB
}

// NewReimbursementRepository returns a new instance of ReimbursementRepository
func NewReimbursementRepository(db *gorm.DB) ReimbursementRepository {
	return &reimbursementRepository{db: db}
}

func (r *reimbursementRepository) Create(ctx context.Context, reimb *model.Reimbursement) error {
	return r.db.WithContext(ctx).Create(reimb).Error
}

func (r *reimbursementRepository) GetByID(ctx context.Context, id string) (*model.Reimbursement, error) {
	var reimb model.Reimbursement
	err := r.db.WithContext(ctx).
		Preload("Submitter").
		Preload("Receipts", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&reimb, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &reimb, nil
}

func (r *reimbursementRepository) List(ctx context.Context, q ListQuery) ([]model.Reimbursement, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.Reimbursement{})
	base = applyListQuery(base, q)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reimbursements: %w", err)
	}

	fetch := r.db.WithContext(ctx).
		Preload("Submitter").
		Preload("Receipts")
	fetch = applyListQuery(fetch, q)

	sortField := q.SortField
	switch sortField {
	case "date_of_purchase", "total_amount", "status":
	default:
		sortField = "date_of_purchase"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	fetch = fetch.Order(sortField + " " + direction)

	if q.Limit > 0 {
		fetch = fetch.Offset(q.Offset).Limit(q.Limit)
	}

	var reimbs []model.Reimbursement
	if err := fetch.Find(&reimbs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch reimbursements: %w", err)
	}

	return reimbs, total, nil
}

func applyListQuery(db *gorm.DB, q ListQuery) *gorm.DB {
	if len(q.Statuses) > 0 {
		db = db.Where("status IN ?", q.Statuses)
	}
	if len(q.Departments) > 0 {
		db = db.Where("department IN ?", q.Departments)
	}
	if q.Since != nil {
		db = db.Where("date_of_purchase >= ?", *q.Since)
	}
	if len(q.ExcludeStatuses) > 0 {
		db = db.Where("status NOT IN ?", q.ExcludeStatuses)
	}
	return db
}

func (r *reimbursementRepository) TransitionStatus(ctx context.Context, id string, from, to string, entry *model.AuditLogEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Compare-and-set on the predecessor status so two concurrent
		// transitions cannot both land.
		res := tx.Model(&model.Reimbursement{}).
			Where("id = ? AND status = ?", id, from).
			Update("status", to)
		if res.Error != nil {
			return fmt.Errorf("failed to update status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}

		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to write audit log: %w", err)
			}
		}
		return nil
	})
}
