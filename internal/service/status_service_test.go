package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"

	"github.com/google/uuid"
)

func TestTransitionRequiresAuthentication(t *testing.T) {
	store := newFakeStore()
	reimb := store.addReimbursement(model.StatusSubmitted, nil)
	svc := newTestStatusService(store, &fakeNotifier{})

	_, err := svc.Transition(context.Background(), reimb.ID.String(), model.StatusUnderReview, "")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(store.logs) != 0 {
		t.Fatalf("no journal entry should be written, got %d", len(store.logs))
	}
	if got := store.reimbs[reimb.ID.String()].Status; got != model.StatusSubmitted {
		t.Fatalf("status must be unchanged, got %s", got)
	}
}

func TestTransitionHappyPath(t *testing.T) {
	store := newFakeStore()
	actor := uuid.NewString()
	reimb := store.addReimbursement(model.StatusSubmitted, nil)
	notifier := &fakeNotifier{}
	svc := newTestStatusService(store, notifier)

	resp, err := svc.Transition(context.Background(), reimb.ID.String(), model.StatusUnderReview, actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != model.StatusUnderReview {
		t.Fatalf("expected refreshed status under_review, got %s", resp.Status)
	}

	if len(store.logs) != 1 {
		t.Fatalf("expected exactly one status_change log, got %d", len(store.logs))
	}
	entry := store.logs[0]
	if entry.Action != model.AuditActionStatusChange {
		t.Fatalf("unexpected action %s", entry.Action)
	}
	var payload model.StatusChangePayload
	if err := json.Unmarshal([]byte(entry.Details), &payload); err != nil {
		t.Fatalf("bad details payload: %v", err)
	}
	if payload.From != model.StatusSubmitted || payload.To != model.StatusUnderReview {
		t.Fatalf("payload mismatch: %+v", payload)
	}

	if len(notifier.statusChanges) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notifier.statusChanges))
	}
	call := notifier.statusChanges[0]
	if call.previous != model.StatusSubmitted || call.next != model.StatusUnderReview {
		t.Fatalf("notification carried wrong statuses: %+v", call)
	}
}

func TestTransitionSkippingStatesRefused(t *testing.T) {
	store := newFakeStore()
	reimb := store.addReimbursement(model.StatusSubmitted, nil)
	svc := newTestStatusService(store, &fakeNotifier{})

	for _, to := range []string{model.StatusApproved, model.StatusInProgress, model.StatusPaid} {
		_, err := svc.Transition(context.Background(), reimb.ID.String(), to, uuid.NewString())
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("submitted -> %s: expected ErrInvalidTransition, got %v", to, err)
		}
	}
	if len(store.logs) != 0 {
		t.Fatalf("refused transitions must not journal, got %d entries", len(store.logs))
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	store := newFakeStore()
	svc := newTestStatusService(store, &fakeNotifier{})

	paid := store.addReimbursement(model.StatusPaid, nil)
	rejected := store.addReimbursement(model.StatusRejected, nil)

	for _, to := range []string{model.StatusSubmitted, model.StatusUnderReview, model.StatusApproved, model.StatusInProgress, model.StatusPaid} {
		if _, err := svc.Transition(context.Background(), paid.ID.String(), to, uuid.NewString()); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("paid -> %s: expected ErrInvalidTransition, got %v", to, err)
		}
		if _, err := svc.Transition(context.Background(), rejected.ID.String(), to, uuid.NewString()); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("rejected -> %s: expected ErrInvalidTransition, got %v", to, err)
		}
	}

	// Rejection from paid must also be refused
	if _, err := svc.Reject(context.Background(), paid.ID.String(), uuid.NewString(), "too late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("paid -> rejected: expected ErrInvalidTransition, got %v", err)
	}
}

func TestApprovalGateBlocksUnauditedReceipts(t *testing.T) {
	store := newFakeStore()
	actor := uuid.NewString()
	reimb := store.addReimbursement(model.StatusUnderReview, nil, newReceipt(), newReceipt())
	svc := newTestStatusService(store, &fakeNotifier{})

	_, err := svc.Transition(context.Background(), reimb.ID.String(), model.StatusApproved, actor)
	if !errors.Is(err, ErrNotFullyAudited) {
		t.Fatalf("expected ErrNotFullyAudited, got %v", err)
	}
	if got := store.reimbs[reimb.ID.String()].Status; got != model.StatusUnderReview {
		t.Fatalf("gate violation must not write, status is %s", got)
	}
	if len(store.logs) != 0 {
		t.Fatalf("gate violation must not journal, got %d entries", len(store.logs))
	}
}

func TestApprovalGateIsPerApprovingUser(t *testing.T) {
	store := newFakeStore()
	actor := uuid.NewString()
	other := uuid.NewString()
	// Both receipts audited, but by someone else
	reimb := store.addReimbursement(model.StatusUnderReview, nil, newReceipt(other), newReceipt(other))
	svc := newTestStatusService(store, &fakeNotifier{})

	if _, err := svc.Transition(context.Background(), reimb.ID.String(), model.StatusApproved, actor); !errors.Is(err, ErrNotFullyAudited) {
		t.Fatalf("audits by another user must not satisfy the gate, got %v", err)
	}

	// The auditor who signed everything off may approve
	if _, err := svc.Transition(context.Background(), reimb.ID.String(), model.StatusApproved, other); err != nil {
		t.Fatalf("fully-audited approval failed: %v", err)
	}
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	store := newFakeStore()
	reimb := store.addReimbursement(model.StatusApproved, nil)
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	svc := newTestStatusService(store, notifier)

	resp, err := svc.Transition(context.Background(), reimb.ID.String(), model.StatusInProgress, uuid.NewString())
	if err != nil {
		t.Fatalf("notification failure must not fail the transition: %v", err)
	}
	if resp.Status != model.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", resp.Status)
	}
	if len(notifier.statusChanges) != 1 {
		t.Fatalf("notification must still have been attempted once, got %d", len(notifier.statusChanges))
	}
}

func TestRejectComposite(t *testing.T) {
	store := newFakeStore()
	actor := uuid.NewString()
	reimb := store.addReimbursement(model.StatusUnderReview, nil)
	svc := newTestStatusService(store, &fakeNotifier{})

	resp, err := svc.Reject(context.Background(), reimb.ID.String(), actor, "duplicate submission")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != model.StatusRejected {
		t.Fatalf("expected rejected, got %s", resp.Status)
	}

	if len(store.notes) != 1 {
		t.Fatalf("expected one reason note, got %d", len(store.notes))
	}
	note := store.notes[0]
	if note.Note != "Rejection Reason: duplicate submission" {
		t.Fatalf("unexpected note text %q", note.Note)
	}
	if note.IsPrivate {
		t.Fatal("rejection reason note must be public")
	}
}

func TestRejectRequiresReason(t *testing.T) {
	store := newFakeStore()
	reimb := store.addReimbursement(model.StatusSubmitted, nil)
	svc := newTestStatusService(store, &fakeNotifier{})

	for _, reason := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Reject(context.Background(), reimb.ID.String(), uuid.NewString(), reason); !errors.Is(err, ErrReasonRequired) {
			t.Fatalf("reason %q: expected ErrReasonRequired, got %v", reason, err)
		}
	}
	if got := store.reimbs[reimb.ID.String()].Status; got != model.StatusSubmitted {
		t.Fatalf("validation failure must not write, status is %s", got)
	}
}

func TestRejectNoteFailureIsPartialSuccess(t *testing.T) {
	store := newFakeStore()
	reimb := store.addReimbursement(model.StatusUnderReview, nil)
	store.noteErr = errors.New("write refused")
	svc := newTestStatusService(store, &fakeNotifier{})

	resp, err := svc.Reject(context.Background(), reimb.ID.String(), uuid.NewString(), "duplicate submission")
	if !errors.Is(err, ErrReasonNoteFailed) {
		t.Fatalf("expected ErrReasonNoteFailed, got %v", err)
	}
	if resp == nil {
		t.Fatal("partial success must still return the refreshed claim")
	}
	if resp.Status != model.StatusRejected {
		t.Fatalf("status must read rejected on next fetch, got %s", resp.Status)
	}
	if len(store.notes) != 0 {
		t.Fatalf("no note should exist, got %d", len(store.notes))
	}
}

func TestEndToEndApprovalScenario(t *testing.T) {
	store := newFakeStore()
	auditor := uuid.NewString()
	reimb := store.addReimbursement(model.StatusSubmitted, nil, newReceipt(), newReceipt())
	receiptSvc := newTestReceiptService(store)
	svc := newTestStatusService(store, &fakeNotifier{})
	ctx := context.Background()

	// Approving straight away must fail: wrong predecessor state, and once
	// under review, the gate still blocks.
	if _, err := svc.Transition(ctx, reimb.ID.String(), model.StatusApproved, auditor); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Transition(ctx, reimb.ID.String(), model.StatusUnderReview, auditor); err != nil {
		t.Fatalf("under_review transition failed: %v", err)
	}
	if _, err := svc.Transition(ctx, reimb.ID.String(), model.StatusApproved, auditor); !errors.Is(err, ErrNotFullyAudited) {
		t.Fatalf("expected gate violation, got %v", err)
	}

	// Audit both receipts, then approval passes
	fresh, _ := store.GetByID(ctx, reimb.ID.String())
	for _, rec := range fresh.Receipts {
		if _, err := receiptSvc.AuditReceipt(ctx, rec.ID.String(), auditor); err != nil {
			t.Fatalf("audit failed: %v", err)
		}
	}
	resp, err := svc.Transition(ctx, reimb.ID.String(), model.StatusApproved, auditor)
	if err != nil {
		t.Fatalf("approval failed: %v", err)
	}
	if resp.Status != model.StatusApproved {
		t.Fatalf("expected approved, got %s", resp.Status)
	}

	// Journal: status_change, receipt_audit, receipt_audit, status_change —
	// newest first when sorted descending by timestamp.
	logs, total, err := store.ListLogs(ctx, reimb.ID.String(), 1, 20)
	if err != nil {
		t.Fatalf("list logs failed: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 journal entries, got %d", total)
	}
	wantActions := []string{
		model.AuditActionStatusChange, // under_review -> approved
		model.AuditActionReceiptAudit,
		model.AuditActionReceiptAudit,
		model.AuditActionStatusChange, // submitted -> under_review
	}
	for i, want := range wantActions {
		if logs[i].Action != want {
			t.Fatalf("log %d: expected %s, got %s", i, want, logs[i].Action)
		}
	}
}
