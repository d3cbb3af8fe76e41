package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")

	// Ban engine errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidScope   = errors.New("invalid scope")
	ErrStoreFailure   = errors.New("store failure")
	ErrCorruptRecord  = errors.New("stored ban violates the single-scope rule")
)

// Reason codes carried by RequestError
const (
	ReasonEmptyIDs         = "empty_ids"
	ReasonMissingMemberIDs = "missing_member_ids"
	ReasonMissingGroupID   = "missing_group_id"
	ReasonInvalidEndAt     = "invalid_end_at"
	ReasonInvalidDuration  = "invalid_duration"
	ReasonInvalidScope     = "invalid_scope"
	ReasonInvalidScopeKind = "invalid_scope_kind"
	ReasonInvalidID        = "invalid_id"
	ReasonInvalidBody      = "invalid_body"
)

// RequestError is a structural validation failure detected before any store access
type RequestError struct {
	Code    string
	Message string
}

// NewRequestError creates a RequestError
func NewRequestError(code, message string) *RequestError {
	return &RequestError{Code: code, Message: message}
}

func (e *RequestError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrInvalidRequest) hold; invalid_scope also matches ErrInvalidScope
func (e *RequestError) Is(target error) bool {
	if target == ErrInvalidRequest {
		return true
	}
	return target == ErrInvalidScope && e.Code == ReasonInvalidScope
}

// StoreError wraps a backing-store failure; the message is passed through unmodified
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err, returning nil for a nil err
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStoreFailure) hold
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

// ReasonCode returns the RequestError code of err, or "" if err is not a RequestError
func ReasonCode(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
