package feedclient

import (
	"context"
	"errors"
	"slices"
	"sync"

	"agora/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Aggregator merges the pages of the active view into one list, unique by
// item id, in the order the pages were served.
//
// State is guarded by a mutex and fetches run without holding it. Every
// reset bumps the generation, so a fetch started before a refresh or view
// switch has its result dropped when it settles.
type Aggregator[T Item] struct {
	user     models.CurrentUser
	fetcher  Fetcher[T]
	pageSize int
	onChange func(State[T])

	mu         sync.Mutex
	view       models.View
	items      []T
	seen       map[string]struct{}
	page       int
	hasMore    bool
	loading    bool
	lastErr    error
	generation uint64
	mounted    bool
}

// New creates an aggregator for cfg.User. Nothing is fetched until Mount,
// Refresh or LoadMore is called.
func New[T Item](cfg Config[T]) (*Aggregator[T], error) {
	if cfg.User.IsZero() {
		return nil, ErrSignedOut
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("feed requires a fetcher")
	}

	view := cfg.View
	if view == "" {
		view = models.ViewForYou
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = models.FeedPageSize
	}

	return &Aggregator[T]{
		user:     cfg.User,
		fetcher:  cfg.Fetcher,
		pageSize: pageSize,
		onChange: cfg.OnChange,
		view:     view,
		seen:     map[string]struct{}{},
		hasMore:  true,
	}, nil
}

// User returns the user the feed belongs to
func (a *Aggregator[T]) User() models.CurrentUser {
	return a.user
}

// Mount loads the first page of the initial view. Only the first call
// fetches.
func (a *Aggregator[T]) Mount(ctx context.Context) {
	a.mu.Lock()
	if a.mounted {
		a.mu.Unlock()
		return
	}
	a.mounted = true
	gen, view := a.reset()
	a.mu.Unlock()

	a.changed()
	a.fetchFirst(ctx, gen, view)
}

// Refresh drops everything loaded so far and fetches page 1 of the active
// view. A fetch still in flight is ignored when it settles.
func (a *Aggregator[T]) Refresh(ctx context.Context) {
	a.mu.Lock()
	a.mounted = true
	gen, view := a.reset()
	a.mu.Unlock()

	a.changed()
	a.fetchFirst(ctx, gen, view)
}

// SetActiveView switches to view and refreshes. Selecting the active view
// again does nothing.
func (a *Aggregator[T]) SetActiveView(ctx context.Context, view models.View) {
	a.mu.Lock()
	if view == "" || view == a.view {
		a.mu.Unlock()
		return
	}
	a.view = view
	a.mounted = true
	gen, view := a.reset()
	a.mu.Unlock()

	log.WithFields(log.Fields{
		"user": a.user.ID,
		"view": view,
	}).Debug("Switched feed view")

	a.changed()
	a.fetchFirst(ctx, gen, view)
}

// LoadMore appends the next page. It is a no-op while a fetch is in flight
// or once the end of the feed has been reached.
func (a *Aggregator[T]) LoadMore(ctx context.Context) {
	a.mu.Lock()
	if !a.hasMore || a.loading {
		a.mu.Unlock()
		return
	}
	a.loading = true
	gen, view, next := a.generation, a.view, a.page+1
	a.mu.Unlock()

	a.changed()

	batch, err := a.fetcher.FetchPage(ctx, view, next)

	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		a.dropped(view, next)
		return
	}
	a.loading = false

	if err != nil {
		a.lastErr = asFetchError(err, view, next)
		a.hasMore = false
		a.mu.Unlock()
		a.failed(view, next, err)
		a.changed()
		return
	}

	fresh := a.merge(batch)
	if fresh == 0 {
		// Empty or fully duplicate, the cursor stays on the last useful page
		a.hasMore = false
	} else {
		a.page = next
		a.hasMore = len(batch) == a.pageSize
	}
	a.mu.Unlock()

	a.changed()
}

// State returns a snapshot that later changes do not affect
func (a *Aggregator[T]) State() State[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// Communities lists the user's communities when the fetcher supports it
func (a *Aggregator[T]) Communities(ctx context.Context) ([]models.Community, error) {
	lister, ok := a.fetcher.(CommunityLister)
	if !ok {
		return nil, nil
	}
	return lister.FetchCommunities(ctx)
}

// reset starts a new generation with empty state and marks it loading.
// Callers hold the lock.
func (a *Aggregator[T]) reset() (uint64, models.View) {
	a.generation++
	a.items = nil
	a.seen = map[string]struct{}{}
	a.page = 0
	a.hasMore = true
	a.lastErr = nil
	a.loading = true
	return a.generation, a.view
}

// fetchFirst loads page 1 for the generation started by reset
func (a *Aggregator[T]) fetchFirst(ctx context.Context, gen uint64, view models.View) {
	batch, err := a.fetcher.FetchPage(ctx, view, 1)

	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		a.dropped(view, 1)
		return
	}
	a.loading = false

	if err != nil {
		a.lastErr = asFetchError(err, view, 1)
		a.hasMore = false
		a.mu.Unlock()
		a.failed(view, 1, err)
		a.changed()
		return
	}

	a.merge(batch)
	a.page = 1
	a.hasMore = len(batch) == a.pageSize
	a.mu.Unlock()

	a.changed()
}

// merge appends the items of batch not seen before, keeping the first
// occurrence, and returns how many were added. Callers hold the lock.
func (a *Aggregator[T]) merge(batch []T) int {
	fresh := lo.Filter(lo.UniqBy(batch, func(item T) string {
		return item.ItemID()
	}), func(item T, _ int) bool {
		_, ok := a.seen[item.ItemID()]
		return !ok
	})

	for _, item := range fresh {
		a.seen[item.ItemID()] = struct{}{}
	}
	a.items = append(a.items, fresh...)
	return len(fresh)
}

func (a *Aggregator[T]) snapshot() State[T] {
	return State[T]{
		View:      a.view,
		Items:     slices.Clone(a.items),
		Page:      a.page,
		HasMore:   a.hasMore,
		IsLoading: a.loading,
		LastError: a.lastErr,
	}
}

func (a *Aggregator[T]) changed() {
	if a.onChange == nil {
		return
	}
	a.onChange(a.State())
}

func (a *Aggregator[T]) dropped(view models.View, page int) {
	log.WithFields(log.Fields{
		"user": a.user.ID,
		"view": view,
		"page": page,
	}).Debug("Dropped stale feed page")
}

func (a *Aggregator[T]) failed(view models.View, page int, err error) {
	log.WithFields(log.Fields{
		"user":  a.user.ID,
		"view":  view,
		"page":  page,
		"error": err,
	}).Warn("Failed to fetch feed page")
}
