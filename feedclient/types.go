// Package feedclient keeps a deduplicated, growable view of a paginated
// feed for one signed-in user and drives infinite scrolling over it.
package feedclient

import (
	"context"
	"errors"
	"fmt"

	"agora/models"
)

// ErrSignedOut is returned when an aggregator is created without a user
var ErrSignedOut = errors.New("feed requires a signed-in user")

// Item is anything with a stable identity. Payload fields are opaque to
// the aggregator.
type Item interface {
	ItemID() string
}

// Fetcher returns one page (1-based) of a view, already sorted for display.
// A page shorter than the page size marks the end of the feed.
type Fetcher[T Item] interface {
	FetchPage(ctx context.Context, view models.View, page int) ([]T, error)
}

// CommunityLister is implemented by fetchers that can list the signed-in
// user's communities
type CommunityLister interface {
	FetchCommunities(ctx context.Context) ([]models.Community, error)
}

// State is a snapshot of the aggregator
type State[T Item] struct {
	View      models.View
	Items     []T
	Page      int
	HasMore   bool
	IsLoading bool
	LastError error
}

// Config configures a new Aggregator
type Config[T Item] struct {
	User    models.CurrentUser
	Fetcher Fetcher[T]
	// Initial view, for-you when empty
	View models.View
	// Defaults to models.FeedPageSize
	PageSize int
	// Called with a fresh snapshot after every state change. Calls from
	// concurrent operations may interleave.
	OnChange func(State[T])
}

// FetchError describes a page that could not be retrieved
type FetchError struct {
	View models.View
	Page int
	// HTTP status, zero when no response was received
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s page %d: status %d: %v", e.View, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s page %d: %v", e.View, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// asFetchError keeps fetcher errors that already carry context and wraps
// anything else
func asFetchError(err error, view models.View, page int) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{View: view, Page: page, Err: err}
}
