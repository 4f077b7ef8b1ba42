// Package browse holds the per-user feed/search/pagination state machine.
//
// The rules it enforces: a non-empty search term suppresses the feed tabs;
// selecting a feed restarts that feed at page 1 while leaving the other
// cursors alone; a new search term restarts the search cursor; page changes
// are clamped to the known page range and never forwarded out of range.
// Every transition bumps a generation counter so responses from requests
// issued under an older state can be detected and discarded.
package browse

import "sync"

type Feed string

const (
	FeedTrending      Feed = "trending"
	FeedNew           Feed = "new"
	FeedTopRated      Feed = "topRated"
	FeedPopularSeries Feed = "popularSeries"
)

func ValidFeed(f Feed) bool {
	switch f {
	case FeedTrending, FeedNew, FeedTopRated, FeedPopularSeries:
		return true
	}
	return false
}

// View is an immutable snapshot of the controller state. Searching reports
// the search cursor; otherwise the active feed and its cursor.
type View struct {
	Feed       Feed
	Query      string
	Page       int
	Generation uint64
}

func (v View) Searching() bool { return v.Query != "" }

type Controller struct {
	mu         sync.Mutex
	activeFeed Feed
	cursors    map[Feed]int
	query      string
	searchPage int
	totalPages map[Feed]int
	searchTot  int
	gen        uint64
}

func NewController() *Controller {
	return &Controller{
		activeFeed: FeedTrending,
		cursors: map[Feed]int{
			FeedTrending:      1,
			FeedNew:           1,
			FeedTopRated:      1,
			FeedPopularSeries: 1,
		},
		searchPage: 1,
		totalPages: map[Feed]int{},
	}
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() View {
	v := View{Feed: c.activeFeed, Query: c.query, Generation: c.gen}
	if c.query != "" {
		v.Page = c.searchPage
	} else {
		v.Page = c.cursors[c.activeFeed]
	}
	return v
}

// SetSearch sets or clears the search term. A changed non-empty term resets
// the search cursor to 1. Clearing restores the active feed at its cached
// page with no forced reset.
func (c *Controller) SetSearch(term string) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if term == c.query {
		return c.snapshotLocked()
	}
	c.query = term
	if term != "" {
		c.searchPage = 1
		c.searchTot = 0
	}
	c.gen++
	return c.snapshotLocked()
}

// SelectFeed activates a feed tab and restarts it at page 1. Cursors of the
// other feeds are left untouched. No-op while a search term is set.
func (c *Controller) SelectFeed(f Feed) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !ValidFeed(f) || c.query != "" {
		return c.snapshotLocked()
	}
	c.activeFeed = f
	c.cursors[f] = 1
	c.gen++
	return c.snapshotLocked()
}

// SetPage moves the active cursor, clamped to [1, totalPages] as last
// reported by RecordTotalPages. It returns the snapshot and whether the
// cursor actually moved (the view scrolls to top only on a real move).
func (c *Controller) SetPage(page int) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.totalPagesLocked()
	if page < 1 {
		page = 1
	}
	if total > 0 && page > total {
		page = total
	}

	moved := false
	if c.query != "" {
		moved = c.searchPage != page
		c.searchPage = page
	} else {
		moved = c.cursors[c.activeFeed] != page
		c.cursors[c.activeFeed] = page
	}
	if moved {
		c.gen++
	}
	return c.snapshotLocked(), moved
}

// RecordTotalPages stores the page ceiling reported by the catalog for the
// state a response was fetched under. Stale responses are ignored: the
// generation must still match.
func (c *Controller) RecordTotalPages(v View, totalPages int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v.Generation != c.gen {
		return false
	}
	if v.Searching() {
		c.searchTot = totalPages
	} else {
		c.totalPages[v.Feed] = totalPages
	}
	return true
}

func (c *Controller) totalPagesLocked() int {
	if c.query != "" {
		return c.searchTot
	}
	return c.totalPages[c.activeFeed]
}

// Registry hands out one controller per user.
type Registry struct {
	mu          sync.Mutex
	controllers map[string]*Controller
}

func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string]*Controller)}
}

func (r *Registry) For(userID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[userID]
	if !ok {
		c = NewController()
		r.controllers[userID] = c
	}
	return c
}
