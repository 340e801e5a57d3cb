package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for the GORM repositories. It implements
// ReimbursementRepository, ReceiptRepository and AuditRepository so the
// workflow services can be exercised without a database.
type fakeStore struct {
	mu       sync.Mutex
	reimbs   map[string]*model.Reimbursement
	receipts map[string]*model.Receipt
	logs     []model.AuditLogEntry
	notes    []model.AuditNote
	clock    time.Time

	// Injected failures
	noteErr       error
	logErr        error
	transitionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reimbs:   make(map[string]*model.Reimbursement),
		receipts: make(map[string]*model.Receipt),
		clock:    time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so journal ordering is stable.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) addReimbursement(status string, submitter *model.User, receipts ...*model.Receipt) *model.Reimbursement {
	f.mu.Lock()
	defer f.mu.Unlock()

	r := &model.Reimbursement{
		ID:             uuid.New(),
		Title:          "Lab supplies",
		Department:     model.DeptProjects,
		DateOfPurchase: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		PaymentMethod:  "personal card",
		TotalAmount:    decimal.NewFromInt(42),
		Status:         status,
		CreatedAt:      f.tick(),
	}
	if submitter != nil {
		r.SubmittedBy = submitter.ID
		r.Submitter = submitter
	} else {
		r.SubmittedBy = uuid.New()
	}
	f.reimbs[r.ID.String()] = r

	for _, rec := range receipts {
		rec.ReimbursementID = r.ID
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.CreatedAt = f.tick()
		f.receipts[rec.ID.String()] = rec
	}
	return r
}

// --- repository.ReimbursementRepository ---

func (f *fakeStore) Create(ctx context.Context, reimb *model.Reimbursement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reimb.ID == uuid.Nil {
		reimb.ID = uuid.New()
	}
	reimb.CreatedAt = f.tick()
	for i := range reimb.Receipts {
		rec := reimb.Receipts[i]
		rec.ID = uuid.New()
		rec.ReimbursementID = reimb.ID
		rec.CreatedAt = f.tick()
		f.receipts[rec.ID.String()] = &rec
	}
	f.reimbs[reimb.ID.String()] = reimb
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*model.Reimbursement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reimbs[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	out := *r
	out.Receipts = f.receiptsFor(r.ID)
	return &out, nil
}

func (f *fakeStore) receiptsFor(reimbID uuid.UUID) []model.Receipt {
	var recs []model.Receipt
	for _, rec := range f.receipts {
		if rec.ReimbursementID == reimbID {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs
}

func (f *fakeStore) List(ctx context.Context, q repository.ListQuery) ([]model.Reimbursement, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Reimbursement
	for _, r := range f.reimbs {
		if len(q.Statuses) > 0 && !contains(q.Statuses, r.Status) {
			continue
		}
		if len(q.Departments) > 0 && !contains(q.Departments, r.Department) {
			continue
		}
		if q.Since != nil && r.DateOfPurchase.Before(*q.Since) {
			continue
		}
		if contains(q.ExcludeStatuses, r.Status) {
			continue
		}
		cp := *r
		cp.Receipts = f.receiptsFor(r.ID)
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch q.SortField {
		case "total_amount":
			less = out[i].TotalAmount.LessThan(out[j].TotalAmount)
		case "status":
			less = strings.Compare(out[i].Status, out[j].Status) < 0
		default:
			less = out[i].DateOfPurchase.Before(out[j].DateOfPurchase)
		}
		if q.SortDesc {
			return !less
		}
		return less
	})

	total := int64(len(out))
	if q.Limit > 0 {
		if q.Offset >= len(out) {
			return nil, total, nil
		}
		end := q.Offset + q.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[q.Offset:end]
	}
	return out, total, nil
}

func (f *fakeStore) TransitionStatus(ctx context.Context, id string, from, to string, entry *model.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transitionErr != nil {
		return f.transitionErr
	}
	r, ok := f.reimbs[id]
	if !ok {
		return errors.New("record not found")
	}
	if r.Status != from {
		return repository.ErrStatusConflict
	}
	r.Status = to
	if entry != nil {
		entry.ID = uuid.New()
		entry.CreatedAt = f.tick()
		f.logs = append(f.logs, *entry)
	}
	return nil
}

// --- repository.ReceiptRepository ---

func (f *fakeStore) CreateReceipt(ctx context.Context, receipt *model.Receipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	receipt.CreatedAt = f.tick()
	f.receipts[receipt.ID.String()] = receipt
	return nil
}

func (f *fakeStore) GetReceiptByID(ctx context.Context, id string) (*model.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.receipts[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	out := *rec
	return &out, nil
}

func (f *fakeStore) UpdateAuditedBy(ctx context.Context, id string, blob string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.receipts[id]
	if !ok {
		return errors.New("record not found")
	}
	rec.AuditedBy = blob
	return nil
}

// --- repository.AuditRepository ---

func (f *fakeStore) AppendLog(ctx context.Context, entry *model.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return f.logErr
	}
	entry.ID = uuid.New()
	entry.CreatedAt = f.tick()
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeStore) AppendNote(ctx context.Context, note *model.AuditNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noteErr != nil {
		return f.noteErr
	}
	note.ID = uuid.New()
	note.CreatedAt = f.tick()
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeStore) ListLogs(ctx context.Context, reimbursementID string, page, limit int) ([]model.AuditLogEntry, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditLogEntry
	for _, l := range f.logs {
		if l.ReimbursementID.String() == reimbursementID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return pageSlice(out, page, limit), int64(len(out)), nil
}

func (f *fakeStore) ListNotes(ctx context.Context, reimbursementID string, includePrivate bool, page, limit int) ([]model.AuditNote, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditNote
	for _, n := range f.notes {
		if n.ReimbursementID.String() != reimbursementID {
			continue
		}
		if n.IsPrivate && !includePrivate {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return pageSlice(out, page, limit), int64(len(out)), nil
}

func pageSlice[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// receiptRepoAdapter exposes the fake store under the ReceiptRepository
// method names (GetByID/Create collide with the reimbursement methods).
type receiptRepoAdapter struct{ *fakeStore }

func (a receiptRepoAdapter) Create(ctx context.Context, receipt *model.Receipt) error {
	return a.CreateReceipt(ctx, receipt)
}

func (a receiptRepoAdapter) GetByID(ctx context.Context, id string) (*model.Receipt, error) {
	return a.GetReceiptByID(ctx, id)
}

// fakeNotifier records notification attempts and can simulate failure.
type fakeNotifier struct {
	mu            sync.Mutex
	statusChanges []statusChangeCall
	comments      []commentCall
	err           error
}

type statusChangeCall struct {
	reimbursementID string
	previous, next  string
	actorID         string
}

type commentCall struct {
	reimbursementID string
	text            string
	isPrivate       bool
}

func (n *fakeNotifier) NotifyStatusChange(ctx context.Context, reimb *model.Reimbursement, previous, next, actorID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusChanges = append(n.statusChanges, statusChangeCall{
		reimbursementID: reimb.ID.String(),
		previous:        previous,
		next:            next,
		actorID:         actorID,
	})
	return n.err
}

func (n *fakeNotifier) NotifyComment(ctx context.Context, reimb *model.Reimbursement, text, authorID string, isPrivate bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.comments = append(n.comments, commentCall{
		reimbursementID: reimb.ID.String(),
		text:            text,
		isPrivate:       isPrivate,
	})
	return n.err
}

// syncDispatch runs notification dispatch inline so tests are deterministic.
func syncDispatch(fn func()) { fn() }

func newTestReceiptService(store *fakeStore) ReceiptService {
	return NewReceiptService(receiptRepoAdapter{store}, store, nil)
}

func newTestStatusService(store *fakeStore, notifier *fakeNotifier) StatusService {
	return &statusService{
		reimbRepo:  store,
		auditRepo:  store,
		receiptSvc: newTestReceiptService(store),
		notifier:   notifier,
		dispatch:   syncDispatch,
	}
}

func newTestJournalService(store *fakeStore, notifier *fakeNotifier) JournalService {
	return &journalService{
		auditRepo: store,
		reimbRepo: store,
		notifier:  notifier,
		dispatch:  syncDispatch,
	}
}

func newReceipt(auditors ...string) *model.Receipt {
	return &model.Receipt{
		LocationName:     "Fry's Electronics",
		LocationAddress:  "9825 Stonecrest Blvd",
		Date:             time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
		Tax:              decimal.NewFromFloat(1.23),
		ItemizedExpenses: model.EncodeItemizedExpenses([]model.ItemizedExpense{{Description: "Cables", Category: "parts", Amount: decimal.NewFromInt(10)}}),
		AuditedBy:        model.EncodeAuditorSet(auditors),
	}
}
