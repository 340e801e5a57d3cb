package service

import "errors"

// Sentinel errors for the reimbursement workflow. Handlers map these onto
// HTTP statuses; everything else propagates as a plain failed operation.
var (
	// ErrUnauthenticated: no current user identity; refused before any write.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidTransition: the requested status change is not legal from the
	// claim's current status.
	ErrInvalidTransition = errors.New("illegal status transition")

	// ErrNotFullyAudited: approval was requested before the approving user
	// audited every receipt on the claim. No store write is attempted.
	ErrNotFullyAudited = errors.New("all receipts must be audited before approval")

	// ErrReasonRequired: rejection was requested without a reason.
	ErrReasonRequired = errors.New("rejection reason is required")

	// ErrReasonNoteFailed: the claim was rejected but the reason note could
	// not be recorded. Partial success — callers should warn, not roll back.
	ErrReasonNoteFailed = errors.New("reimbursement rejected but reason note was not recorded")

	// ErrNoteEmpty / ErrNoteTooLong: note validation, checked before any write.
	ErrNoteEmpty   = errors.New("note text must not be empty")
	ErrNoteTooLong = errors.New("note text exceeds 500 characters")
)
