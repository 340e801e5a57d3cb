package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/notify"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// nextStatuses is the legal transition table. rejected is reachable from any
// non-terminal status; paid and rejected are terminal.
var nextStatuses = map[string][]string{
	model.StatusSubmitted:   {model.StatusUnderReview, model.StatusRejected},
	model.StatusUnderReview: {model.StatusApproved, model.StatusRejected},
	model.StatusApproved:    {model.StatusInProgress, model.StatusRejected},
	model.StatusInProgress:  {model.StatusPaid, model.StatusRejected},
	model.StatusPaid:        {},
	model.StatusRejected:    {},
}

func canTransition(from, to string) bool {
	for _, next := range nextStatuses[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusService is the reimbursement status state machine. It enforces the
// transition table and the fully-audited approval gate, journals every
// transition, fires best-effort notifications, and re-fetches the claim so
// the returned state is what was actually persisted.
//
// The approval gate is deliberately per approving user: every receipt must
// have been audited by the user requesting approval, not merely by someone.
// Role/permission checks are layered by the route middleware, not here.
type StatusService interface {
	// Transition moves the claim to `to`. Rejection is not accepted here —
	// it requires a reason and goes through Reject.
	Transition(ctx context.Context, reimbursementID, to, actorID string) (*ReimbursementResponse, error)
	// Reject is the composite rejection operation: status write plus a
	// public "Rejection Reason: <text>" note. A note failure after a
	// successful status write returns the refreshed claim together with
	// ErrReasonNoteFailed so callers can warn instead of claiming failure.
	Reject(ctx context.Context, reimbursementID, actorID, reason string) (*ReimbursementResponse, error)
}

type statusService struct {
	reimbRepo  repository.ReimbursementRepository
	auditRepo  repository.AuditRepository
	receiptSvc ReceiptService
	notifier   notify.Notifier
	dispatch   func(fn func()) // async notification dispatch, replaceable in tests
}

// NewStatusService returns a new instance of StatusService
func NewStatusService(reimbRepo repository.ReimbursementRepository, auditRepo repository.AuditRepository, receiptSvc ReceiptService, notifier notify.Notifier) StatusService {
	return &statusService{
		reimbRepo:  reimbRepo,
		auditRepo:  auditRepo,
		receiptSvc: receiptSvc,
		notifier:   notifier,
		dispatch:   func(fn func()) { go fn() },
	}
}

func (s *statusService) Transition(ctx context.Context, reimbursementID, to, actorID string) (*ReimbursementResponse, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	if !model.ValidStatus(to) {
		return nil, fmt.Errorf("unknown status %q", to)
	}
	if to == model.StatusRejected {
		return nil, fmt.Errorf("%w: rejection requires a reason, use the reject operation", ErrInvalidTransition)
	}

	reimb, err := s.reimbRepo.GetByID(ctx, reimbursementID)
	if err != nil {
		return nil, fmt.Errorf("reimbursement not found: %w", err)
	}

	from := reimb.Status
	if !canTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	// Approval gate: the approving user must have personally audited every
	// receipt. Checked before any store write.
	if to == model.StatusApproved && !s.receiptSvc.IsFullyAudited(reimb, actorID) {
		return nil, ErrNotFullyAudited
	}

	if err := s.writeTransition(ctx, reimb, from, to, actorUUID); err != nil {
		return nil, err
	}

	s.notifyStatusChange(reimb, from, to, actorID)

	return s.refresh(ctx, reimbursementID)
}

func (s *statusService) Reject(ctx context.Context, reimbursementID, actorID, reason string) (*ReimbursementResponse, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	reimb, err := s.reimbRepo.GetByID(ctx, reimbursementID)
	if err != nil {
		return nil, fmt.Errorf("reimbursement not found: %w", err)
	}

	from := reimb.Status
	if !canTransition(from, model.StatusRejected) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, model.StatusRejected)
	}

	if err := s.writeTransition(ctx, reimb, from, model.StatusRejected, actorUUID); err != nil {
		return nil, err
	}

	// The reason note is a separate append after the status write. If it
	// fails, the claim stays rejected with no recorded reason — surfaced as
	// a distinguishable partial success.
	note := &model.AuditNote{
		ReimbursementID: reimb.ID,
		Note:            "Rejection Reason: " + reason,
		AuditorID:       actorUUID,
		IsPrivate:       false,
	}
	noteErr := s.auditRepo.AppendNote(ctx, note)
	if noteErr != nil {
		log.Error().Err(noteErr).Str("reimbursement_id", reimbursementID).Msg("rejection reason note was not recorded")
	}

	s.notifyStatusChange(reimb, from, model.StatusRejected, actorID)

	resp, err := s.refresh(ctx, reimbursementID)
	if err != nil {
		return nil, err
	}
	if noteErr != nil {
		return resp, fmt.Errorf("%w: %v", ErrReasonNoteFailed, noteErr)
	}
	return resp, nil
}

// writeTransition persists the status change and its status_change journal
// row in one transaction, using the expected predecessor as a guard.
func (s *statusService) writeTransition(ctx context.Context, reimb *model.Reimbursement, from, to string, actorUUID uuid.UUID) error {
	payload, _ := json.Marshal(model.StatusChangePayload{From: from, To: to})
	entry := &model.AuditLogEntry{
		ReimbursementID: reimb.ID,
		Action:          model.AuditActionStatusChange,
		AuditorID:       actorUUID,
		Details:         string(payload),
	}

	if err := s.reimbRepo.TransitionStatus(ctx, reimb.ID.String(), from, to, entry); err != nil {
		return fmt.Errorf("failed to transition %s -> %s: %w", from, to, err)
	}
	return nil
}

// notifyStatusChange dispatches exactly one best-effort notification for a
// successful transition. Failures are logged and swallowed — notification
// outcome never affects the transition result.
func (s *statusService) notifyStatusChange(reimb *model.Reimbursement, from, to, actorID string) {
	s.dispatch(func() {
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.NotifyStatusChange(nctx, reimb, from, to, actorID); err != nil {
			log.Warn().Err(err).
				Str("reimbursement_id", reimb.ID.String()).
				Str("from", from).Str("to", to).
				Msg("status change notification failed")
		}
	})
}

// refresh re-fetches the claim and its receipts so in-memory state matches
// persisted state; audit data can be mutated concurrently by other parties.
func (s *statusService) refresh(ctx context.Context, reimbursementID string) (*ReimbursementResponse, error) {
	fresh, err := s.reimbRepo.GetByID(ctx, reimbursementID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload reimbursement: %w", err)
	}
	resp := toReimbursementResponse(fresh, s.receiptSvc)
	return &resp, nil
}
