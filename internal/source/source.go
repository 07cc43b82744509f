// Package source defines the narrow mail-source capability the engine
// consumes, plus the retryable error kinds a fetch can fail with.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rvashist/mailwatch/internal/types"
)

// Source supplies message metadata and attachment bytes for a date range.
// The engine treats every fetch failure as retryable on the next cycle;
// it performs no in-cycle retries.
type Source interface {
	FetchMessages(ctx context.Context, since time.Time) ([]types.Message, error)
}

// FetchErrorKind categorizes why a fetch failed.
type FetchErrorKind int

const (
	// KindNetwork covers transport failures and unclassified errors.
	KindNetwork FetchErrorKind = iota
	// KindAuth covers rejected or expired credentials.
	KindAuth
	// KindRateLimited covers provider throttling.
	KindRateLimited
)

func (k FetchErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate-limited"
	default:
		return "network"
	}
}

// FetchError wraps a mail-source failure with its kind.
type FetchError struct {
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch messages (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err as a FetchError of the given kind.
func NewFetchError(kind FetchErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// AsFetchError extracts a FetchError from err's chain, if present.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
