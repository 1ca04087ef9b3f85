package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication and authorization.
var (
	// Authentication errors
	ErrMissingCredentials  = errors.New("auth: missing credentials")
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrUnauthenticated     = errors.New("auth: unauthenticated")
	ErrTokenMalformed      = errors.New("auth: token malformed")
	ErrTokenBadSignature   = errors.New("auth: token signature invalid")
	ErrTokenExpired        = errors.New("auth: token expired")
	ErrTokenMissingSubject = errors.New("auth: token subject missing")
	ErrTokenUnknownSubject = errors.New("auth: token subject unknown")
	ErrTokenRevoked        = errors.New("auth: token revoked")

	// Directory errors
	ErrAccountNotFound = errors.New("auth: account not found")

	// Authorization errors
	ErrAccountInactive = errors.New("auth: account inactive")
	ErrForbidden       = errors.New("auth: access denied")
)

// TokenReason identifies why a bearer token was rejected.
type TokenReason string

const (
	ReasonMalformed      TokenReason = "malformed"
	ReasonBadSignature   TokenReason = "bad_signature"
	ReasonExpired        TokenReason = "expired"
	ReasonMissingSubject TokenReason = "missing_subject"
	ReasonUnknownSubject TokenReason = "unknown_subject"
	ReasonRevoked        TokenReason = "revoked"
)

var tokenReasonSentinels = map[TokenReason]error{
	ReasonMalformed:      ErrTokenMalformed,
	ReasonBadSignature:   ErrTokenBadSignature,
	ReasonExpired:        ErrTokenExpired,
	ReasonMissingSubject: ErrTokenMissingSubject,
	ReasonUnknownSubject: ErrTokenUnknownSubject,
	ReasonRevoked:        ErrTokenRevoked,
}

// TokenError represents a rejected bearer token.
//
// Every TokenError matches ErrUnauthenticated and the sentinel for its
// Reason, so callers can branch on either the outcome or the cause.
type TokenError struct {
	// Reason is the internal rejection reason.
	Reason TokenReason

	// Cause is the underlying parser or directory error, if any.
	Cause error
}

// Error returns the error message.
func (e *TokenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth: token rejected: %s: %v", e.Reason, e.Cause)
	}
	return "auth: token rejected: " + string(e.Reason)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *TokenError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *TokenError) Is(target error) bool {
	if target == ErrUnauthenticated {
		return true
	}
	sentinel, ok := tokenReasonSentinels[e.Reason]
	return ok && target == sentinel
}

// FailureReason returns the reason for logs and metrics.
func (e *TokenError) FailureReason() string {
	return string(e.Reason)
}

func tokenError(reason TokenReason, cause error) *TokenError {
	return &TokenError{Reason: reason, Cause: cause}
}

// DenialError represents an authorization pipeline denial.
type DenialError struct {
	// Check is the name of the check that denied the request.
	Check string

	// Reason is a short server-side explanation.
	Reason string

	// Cause is the error returned by the check.
	Cause error
}

// Error returns the error message.
func (e *DenialError) Error() string {
	return fmt.Sprintf("authorization denied: check=%q reason=%q", e.Check, e.Reason)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *DenialError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *DenialError) Is(target error) bool {
	return target == ErrForbidden
}

// FailureReason returns the denying check name for logs and metrics.
func (e *DenialError) FailureReason() string {
	return "denied:" + e.Check
}

// Outcome is the externally visible classification of an error.
type Outcome int

const (
	// OutcomeOK means no error.
	OutcomeOK Outcome = iota
	// OutcomeUnauthenticated covers bad credentials and rejected tokens.
	OutcomeUnauthenticated
	// OutcomeInactive means the account is authenticated but disabled.
	OutcomeInactive
	// OutcomeForbidden means an authorization check denied the request.
	OutcomeForbidden
	// OutcomeInternal means an infrastructure failure.
	OutcomeInternal
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeInactive:
		return "inactive"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Classify maps an error to its externally visible outcome.
//
// Account inactivity is checked first so a denial caused by a disabled
// account is reported separately from other authorization failures.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrAccountInactive):
		return OutcomeInactive
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrMissingCredentials):
		return OutcomeUnauthenticated
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	default:
		return OutcomeInternal
	}
}

// Public messages returned to clients. They never carry the internal reason.
const (
	MessageUnauthenticated    = "Invalid authentication credentials"
	MessageInvalidCredentials = "Incorrect username or password"
	MessageInactive           = "Inactive user"
	MessageForbidden          = "Not enough permissions"
	MessageInternal           = "Internal server error"
)

// PublicMessage returns the generic client-facing message for an error.
func PublicMessage(err error) string {
	if errors.Is(err, ErrInvalidCredentials) {
		return MessageInvalidCredentials
	}
	switch Classify(err) {
	case OutcomeUnauthenticated:
		return MessageUnauthenticated
	case OutcomeInactive:
		return MessageInactive
	case OutcomeForbidden:
		return MessageForbidden
	case OutcomeOK:
		return ""
	default:
		return MessageInternal
	}
}

// FailureReason returns a stable, low-cardinality reason for an error.
// It is meant for logs and metric attributes, never for clients.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	var reasoned interface{ FailureReason() string }
	if errors.As(err, &reasoned) {
		return reasoned.FailureReason()
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrAccountInactive):
		return "account_inactive"
	default:
		return "internal"
	}
}
