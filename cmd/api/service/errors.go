package service

import (
	"errors"
	"fmt"

	"github.com/genomeai/platform/common/ratelimit"
	commonrepo "github.com/genomeai/platform/common/repository"
)

// Error kinds; handlers map them onto HTTP statuses
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrUnprocessable = errors.New("unprocessable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")
)

// Error is a domain error with a user-facing detail
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound names the missing entity, e.g. NotFound("Workflow")
func NotFound(entity string) error {
	return &Error{Kind: ErrNotFound, Detail: entity + " not found"}
}

// Forbidden reports a failed capability or ownership check
func Forbidden(detail string) error {
	return &Error{Kind: ErrForbidden, Detail: detail}
}

// Unprocessable reports a request that is well-formed but cannot be applied
func Unprocessable(detail string) error {
	return &Error{Kind: ErrUnprocessable, Detail: detail}
}

// Unauthorized reports a missing or bad credential
func Unauthorized(detail string) error {
	return &Error{Kind: ErrUnauthorized, Detail: detail}
}

// Conflict reports a uniqueness or reference violation
func Conflict(detail string) error {
	return &Error{Kind: ErrConflict, Detail: detail}
}

// RateLimitError reports an exhausted submission window
type RateLimitError struct {
	Tier              ratelimit.Tier
	Limit             int64
	CurrentCount      int64
	RetryAfterSeconds int64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s tier allows %d runs/minute, retry after %d seconds",
		e.Tier, e.Limit, e.RetryAfterSeconds)
}

// DispatchError wraps a runner call that produced no usable outcome.
// The run has already been failed when this is returned.
type DispatchError struct {
	RunID string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("Runner error: %v", e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// notFoundOr converts a repository miss into NotFound(entity)
func notFoundOr(err error, entity string) error {
	if errors.Is(err, commonrepo.ErrNotFound) {
		return NotFound(entity)
	}
	return err
}
