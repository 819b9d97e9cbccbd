package festadmin

import (
	"context"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

const (
	textCodeValidation         = "VALIDATION_FAILED"
	textCodeDuplicateKey       = "DUPLICATE_KEY"
	textCodeNotFound           = "NOT_FOUND"
	textCodeUnauthenticated    = "AUTHENTICATION_REQUIRED"
	textCodeForbidden          = "FORBIDDEN"
	textCodeApprovalPending    = "APPROVAL_PENDING"
	textCodeIllegalTransition  = "ILLEGAL_TRANSITION"
	textCodeNoOpTransition     = "NOOP_TRANSITION"
	textCodeEntityRetired      = "ENTITY_RETIRED"
	textCodeAlreadyDeleted     = "ALREADY_DELETED"
	textCodeStaleState         = "STALE_STATE"
	textCodeSessionExpired     = "SESSION_EXPIRED"
	textCodeSessionInvalidated = "SESSION_INVALIDATED"
	textCodeAuditWriteFailed   = "AUDIT_WRITE_FAILED"
	textCodeIndeterminate      = "INDETERMINATE"
)

// ErrValidation is returned for malformed input payloads.
var ErrValidation = goerrors.New("invalid request payload", goerrors.CategoryValidation).
	WithTextCode(textCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrDuplicateKey is returned when a composite key collides with a live record.
var ErrDuplicateKey = goerrors.New("duplicate key for live record", goerrors.CategoryConflict).
	WithTextCode(textCodeDuplicateKey).
	WithCode(goerrors.CodeConflict)

// ErrNotFound is returned when the target record does not exist or is retired.
var ErrNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnauthenticated is returned when no actor context is present.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(textCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned when the actor's role does not match the operation.
// Role mismatch is always reported before approval status so a caller with
// the wrong role never learns about the approval workflow.
var ErrForbidden = goerrors.New("insufficient role for operation", goerrors.CategoryAuth).
	WithTextCode(textCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrApprovalPending is returned when the role matches but the admin account
// has not been promoted to active.
var ErrApprovalPending = goerrors.New("admin approval pending", goerrors.CategoryAuth).
	WithTextCode(textCodeApprovalPending).
	WithCode(goerrors.CodeForbidden)

// ErrIllegalTransition is returned when a requested status change is not in
// the adjacency set of the current status.
var ErrIllegalTransition = goerrors.New("illegal state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeIllegalTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrNoOpTransition is returned when the requested status equals the current
// one. Signals a caller bug instead of silently succeeding, which would
// otherwise duplicate audit entries for a non-change.
var ErrNoOpTransition = goerrors.New("transition to current status", goerrors.CategoryValidation).
	WithTextCode(textCodeNoOpTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrEntityRetired is returned for any transition attempt on a soft-deleted
// entity.
var ErrEntityRetired = goerrors.New("entity is retired", goerrors.CategoryConflict).
	WithTextCode(textCodeEntityRetired).
	WithCode(goerrors.CodeConflict)

// ErrAlreadyDeleted is returned for a repeated soft delete.
var ErrAlreadyDeleted = goerrors.New("entity already deleted", goerrors.CategoryConflict).
	WithTextCode(textCodeAlreadyDeleted).
	WithCode(goerrors.CodeConflict)

// ErrStaleState is returned when a conditional update lost the race against
// a concurrent transition. Callers may retry once with a fresh read; the
// core never retries on its own.
var ErrStaleState = goerrors.New("entity state changed concurrently", goerrors.CategoryConflict).
	WithTextCode(textCodeStaleState).
	WithCode(goerrors.CodeConflict)

// ErrSessionExpired is returned when the bearer credential expired.
var ErrSessionExpired = goerrors.New("session credential expired", goerrors.CategoryAuth).
	WithTextCode(textCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionInvalidated is returned when renewal failed or a renewed
// credential was rejected again; the caller must re-authenticate.
var ErrSessionInvalidated = goerrors.New("session invalidated, re-authentication required", goerrors.CategoryAuth).
	WithTextCode(textCodeSessionInvalidated).
	WithCode(goerrors.CodeUnauthorized)

// ErrAuditWriteFailed marks a mutation whose audit record could not be
// written. Inside a transaction the mutation rolls back with the entry;
// against a non-transactional store the mutation stays applied and callers
// must trigger an out-of-band reconciliation instead of swallowing it.
var ErrAuditWriteFailed = goerrors.New("entity mutation was not audited", goerrors.CategoryOperation).
	WithTextCode(textCodeAuditWriteFailed).
	WithCode(goerrors.CodeInternal)

// ErrIndeterminate is returned when a deadline fired during a non-idempotent
// call; the mutation may have applied server-side. Never retried blindly —
// callers must reconcile with a fresh read.
var ErrIndeterminate = goerrors.New("operation outcome indeterminate", goerrors.CategoryOperation).
	WithTextCode(textCodeIndeterminate).
	WithCode(goerrors.CodeRequestTimeout)

// withMeta attaches metadata to a copy of a shared sentinel. WithMetadata
// mutates its receiver, so calling it on the package-level sentinels would
// race under concurrency and leak one caller's identifiers into every other
// caller's error of the same kind. Source points back at the sentinel so
// errors.Is keeps matching.
func withMeta(sentinel *goerrors.Error, meta map[string]any) *goerrors.Error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	clone.Source = sentinel
	return clone.WithMetadata(meta)
}

// IsUniqueViolation checks for storage-level uniqueness constraint failures
// across the drivers we target.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// TranslateStorageError maps storage collaborator failures into the stable
// client-facing taxonomy. Errors already carrying a category pass through
// untouched; anything unrecognized becomes an internal error with a generic
// message.
func TranslateStorageError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return withMeta(ErrIndeterminate, map[string]any{
			"operation": msg,
		})
	case repository.IsRecordNotFound(err):
		return withMeta(ErrNotFound, map[string]any{
			"operation": msg,
		})
	case IsUniqueViolation(err):
		return withMeta(ErrDuplicateKey, map[string]any{
			"operation": msg,
		})
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

// TranslateCredentialError maps credential collaborator failures.
func TranslateCredentialError(err error) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return withMeta(ErrIndeterminate, map[string]any{
			"operation": "credential exchange",
		})
	}

	if IsTokenExpiredError(err) {
		return ErrSessionExpired
	}

	return goerrors.Wrap(err, goerrors.CategoryAuth, "credential exchange failed")
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
