package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/notify"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxNoteLength bounds human-authored audit notes.
const MaxNoteLength = 500

type AuditLogResponse struct {
	ID              string `json:"id"`
	ReimbursementID string `json:"reimbursement_id"`
	Action          string `json:"action"`
	AuditorID       string `json:"auditor_id"`
	AuditorName     string `json:"auditor_name"`
	Details         string `json:"details"`
	CreatedAt       string `json:"created_at"`
}

type AuditNoteResponse struct {
	ID              string `json:"id"`
	ReimbursementID string `json:"reimbursement_id"`
	Note            string `json:"note"`
	AuditorID       string `json:"auditor_id"`
	AuditorName     string `json:"auditor_name"`
	IsPrivate       bool   `json:"is_private"`
	CreatedAt       string `json:"created_at"`
}

// JournalService is the audit journal: two independent append-only streams
// per claim (system logs and human notes), both rendered most-recent-first.
// An append is one INSERT, so concurrent appends interleave instead of
// clobbering each other.
type JournalService interface {
	// AddNote appends a human-authored note. Public notes fire a
	// best-effort comment notification; private notes never notify.
	AddNote(ctx context.Context, reimbursementID, actorID, note string, isPrivate bool) (*AuditNoteResponse, error)
	GetLogs(ctx context.Context, reimbursementID string, page, limit int) ([]AuditLogResponse, int64, error)
	// GetNotes hides private notes unless includePrivate is set (the
	// handler derives that from the viewer's role).
	GetNotes(ctx context.Context, reimbursementID string, includePrivate bool, page, limit int) ([]AuditNoteResponse, int64, error)
}

type journalService struct {
	auditRepo repository.AuditRepository
	reimbRepo repository.ReimbursementRepository
	notifier  notify.Notifier
	dispatch  func(fn func()) // async notification dispatch, replaceable in tests
}

// NewJournalService returns a new instance of JournalService
func NewJournalService(auditRepo repository.AuditRepository, reimbRepo repository.ReimbursementRepository, notifier notify.Notifier) JournalService {
	return &journalService{
		auditRepo: auditRepo,
		reimbRepo: reimbRepo,
		notifier:  notifier,
		dispatch:  func(fn func()) { go fn() },
	}
}

func (s *journalService) AddNote(ctx context.Context, reimbursementID, actorID, note string, isPrivate bool) (*AuditNoteResponse, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	// Validation happens before any store call
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return nil, ErrNoteEmpty
	}
	// Characters, not bytes: a multibyte note must get the full 500.
	if utf8.RuneCountInString(trimmed) > MaxNoteLength {
		return nil, ErrNoteTooLong
	}

	reimb, err := s.reimbRepo.GetByID(ctx, reimbursementID)
	if err != nil {
		return nil, fmt.Errorf("reimbursement not found: %w", err)
	}

	row := &model.AuditNote{
		ReimbursementID: reimb.ID,
		Note:            trimmed,
		AuditorID:       actorUUID,
		IsPrivate:       isPrivate,
	}
	if err := s.auditRepo.AppendNote(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to append note: %w", err)
	}

	// Mirror the note into the system log stream. The note itself is the
	// durable record; a log miss here is logged, not surfaced.
	payload, _ := json.Marshal(model.NoteAddedPayload{
		Preview:   notePreview(trimmed),
		IsPrivate: isPrivate,
	})
	entry := &model.AuditLogEntry{
		ReimbursementID: reimb.ID,
		Action:          model.AuditActionNoteAdded,
		AuditorID:       actorUUID,
		Details:         string(payload),
	}
	if err := s.auditRepo.AppendLog(ctx, entry); err != nil {
		log.Warn().Err(err).Str("reimbursement_id", reimbursementID).Msg("failed to journal note_added entry")
	}

	if !isPrivate {
		s.dispatch(func() {
			nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.notifier.NotifyComment(nctx, reimb, trimmed, actorID, isPrivate); err != nil {
				log.Warn().Err(err).Str("reimbursement_id", reimbursementID).Msg("comment notification failed")
			}
		})
	}

	return &AuditNoteResponse{
		ID:              row.ID.String(),
		ReimbursementID: row.ReimbursementID.String(),
		Note:            row.Note,
		AuditorID:       actorID,
		IsPrivate:       row.IsPrivate,
		CreatedAt:       row.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *journalService) GetLogs(ctx context.Context, reimbursementID string, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.ListLogs(ctx, reimbursementID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		name := ""
		if l.Auditor != nil {
			name = l.Auditor.Username
		}
		res = append(res, AuditLogResponse{
			ID:              l.ID.String(),
			ReimbursementID: l.ReimbursementID.String(),
			Action:          l.Action,
			AuditorID:       l.AuditorID.String(),
			AuditorName:     name,
			Details:         l.Details,
			CreatedAt:       l.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}

func (s *journalService) GetNotes(ctx context.Context, reimbursementID string, includePrivate bool, page, limit int) ([]AuditNoteResponse, int64, error) {
	notes, total, err := s.auditRepo.ListNotes(ctx, reimbursementID, includePrivate, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit notes: %w", err)
	}

	res := make([]AuditNoteResponse, 0, len(notes))
	for _, n := range notes {
		name := ""
		if n.Auditor != nil {
			name = n.Auditor.Username
		}
		res = append(res, AuditNoteResponse{
			ID:              n.ID.String(),
			ReimbursementID: n.ReimbursementID.String(),
			Note:            n.Note,
			AuditorID:       n.AuditorID.String(),
			AuditorName:     name,
			IsPrivate:       n.IsPrivate,
			CreatedAt:       n.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}

func notePreview(note string) string {
	const max = 80
	if utf8.RuneCountInString(note) <= max {
		return note
	}
	// Truncate on a rune boundary so the payload stays valid UTF-8
	return string([]rune(note)[:max]) + "..."
}
