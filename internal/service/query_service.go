package service

import (
	"context"
	"strings"
	"time"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/repository"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/pkg/pagination"
)

// Date range constants for the list filter
const (
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
	RangeAll   = "all"
)

// ReimbursementFilter is the full filter state of the list view.
type ReimbursementFilter struct {
	Statuses     []string
	Departments  []string
	Range        string // week, month, year, all
	HidePaid     bool
	HideRejected bool
	SortField    string // date_of_purchase, total_amount, status
	SortDesc     bool
	Search       string
	Page         int
	Limit        int
}

// QueryService derives the visible reimbursement list: a pure function of the
// filter state and the latest fetched data. It performs no writes.
type QueryService interface {
	List(ctx context.Context, filter ReimbursementFilter) ([]ReimbursementResponse, int64, error)
}

type queryService struct {
	reimbRepo  repository.ReimbursementRepository
	receiptSvc ReceiptService
}

// NewQueryService returns a new instance of QueryService
func NewQueryService(reimbRepo repository.ReimbursementRepository, receiptSvc ReceiptService) QueryService {
	return &queryService{reimbRepo: reimbRepo, receiptSvc: receiptSvc}
}

func (s *queryService) List(ctx context.Context, filter ReimbursementFilter) ([]ReimbursementResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = pagination.DefaultLimit
	}

	searching := strings.TrimSpace(filter.Search) != ""

	q := repository.ListQuery{
		Statuses:    filter.Statuses,
		Departments: filter.Departments,
		Since:       rangeCutoff(filter.Range),
		SortField:   filter.SortField,
		SortDesc:    filter.SortDesc,
	}

	// Auto-hide of paid/rejected is suspended while searching: search
	// always considers the full set.
	if !searching {
		if filter.HidePaid {
			q.ExcludeStatuses = append(q.ExcludeStatuses, model.StatusPaid)
		}
		if filter.HideRejected {
			q.ExcludeStatuses = append(q.ExcludeStatuses, model.StatusRejected)
		}
		q.Offset = (filter.Page - 1) * filter.Limit
		q.Limit = filter.Limit
	}

	reimbs, total, err := s.reimbRepo.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	if searching {
		needle := strings.ToLower(strings.TrimSpace(filter.Search))
		matched := reimbs[:0]
		for i := range reimbs {
			if matchesSearch(&reimbs[i], needle) {
				matched = append(matched, reimbs[i])
			}
		}
		total = int64(len(matched))
		reimbs = pagination.Slice(matched, filter.Page, filter.Limit)
	}

	result := make([]ReimbursementResponse, 0, len(reimbs))
	for i := range reimbs {
		result = append(result, toReimbursementResponse(&reimbs[i], s.receiptSvc))
	}
	return result, total, nil
}

func rangeCutoff(rng string) *time.Time {
	now := time.Now()
	var since time.Time
	switch rng {
	case RangeWeek:
		since = now.AddDate(0, 0, -7)
	case RangeMonth:
		since = now.AddDate(0, -1, 0)
	case RangeYear:
		since = now.AddDate(-1, 0, 0)
	default: // all
		return nil
	}
	return &since
}

// matchesSearch reports whether any display field of the claim contains the
// lowercased needle. Date matching covers the renderings a user might type.
func matchesSearch(r *model.Reimbursement, needle string) bool {
	fields := []string{
		r.Title,
		r.Department,
		r.Status,
		r.AdditionalInfo,
		r.PaymentMethod,
		r.DateOfPurchase.Format("2006-01-02"),
		r.DateOfPurchase.Format("Jan 2, 2006"),
		r.DateOfPurchase.Format("01/02/2006"),
	}
	if r.Submitter != nil {
		fields = append(fields, r.Submitter.Username)
	}
	for i := range r.Receipts {
		fields = append(fields, r.Receipts[i].LocationName, r.Receipts[i].LocationAddress)
	}

	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
