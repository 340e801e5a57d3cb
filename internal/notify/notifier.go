package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/websocket"

	"github.com/rs/zerolog/log"
)

// Notifier is the best-effort side channel fired after workflow mutations.
// Callers treat every method as fire-and-forget: a returned error is logged
// by the caller and never turned into an operation failure.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, reimb *model.Reimbursement, previous, next, actorID string) error
	NotifyComment(ctx context.Context, reimb *model.Reimbursement, text, authorID string, isPrivate bool) error
}

type notifier struct {
	smtp SMTPConfig
	hub  *websocket.Hub
}

// NewNotifier builds the SMTP + websocket notifier. hub may be nil (tests, CLI).
func NewNotifier(smtp SMTPConfig, hub *websocket.Hub) Notifier {
	return &notifier{smtp: smtp, hub: hub}
}

func (n *notifier) NotifyStatusChange(ctx context.Context, reimb *model.Reimbursement, previous, next, actorID string) error {
	n.broadcast(reimb.ID.String())

	if reimb.Submitter == nil || reimb.Submitter.Email == "" {
		return fmt.Errorf("no submitter email on reimbursement %s", reimb.ID)
	}

	subject := fmt.Sprintf("Reimbursement %q is now %s", reimb.Title, next)
	body := fmt.Sprintf(
		"<p>Your reimbursement <b>%s</b> moved from <b>%s</b> to <b>%s</b>.</p><p>Total: $%s</p>",
		reimb.Title, previous, next, reimb.TotalAmount.StringFixed(2))

	return n.smtp.SendMail([]string{reimb.Submitter.Email}, subject, body)
}

func (n *notifier) NotifyComment(ctx context.Context, reimb *model.Reimbursement, text, authorID string, isPrivate bool) error {
	n.broadcast(reimb.ID.String())

	// Private notes never reach the submitter.
	if isPrivate {
		return nil
	}
	if reimb.Submitter == nil || reimb.Submitter.Email == "" {
		return fmt.Errorf("no submitter email on reimbursement %s", reimb.ID)
	}

	subject := fmt.Sprintf("New comment on reimbursement %q", reimb.Title)
	body := fmt.Sprintf("<p>An auditor commented on <b>%s</b>:</p><blockquote>%s</blockquote>", reimb.Title, text)

	return n.smtp.SendMail([]string{reimb.Submitter.Email}, subject, body)
}

// broadcast pushes an invalidate event so connected clients re-fetch the claim.
func (n *notifier) broadcast(reimbursementID string) {
	if n.hub == nil {
		return
	}
	msg, err := json.Marshal(map[string]string{
		"event": "reimbursement.updated",
		"id":    reimbursementID,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode ws event")
		return
	}
	select {
	case n.hub.Broadcast <- msg:
	default:
		log.Warn().Str("reimbursement_id", reimbursementID).Msg("ws broadcast channel full, dropping event")
	}
}
