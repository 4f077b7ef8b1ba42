// Package collections wraps the store with the caching and ordering rules
// the collection views rely on: one list cache entry per (collection, user),
// invalidated by that user's successful mutations only; mutations serialized
// per (collection, user) so a rapid add-then-remove commits in issue order;
// and every operation rejected outright for signed-out callers.
package collections

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"reelkeep/internal/auth"
	"reelkeep/internal/cache"
	"reelkeep/internal/logger"
	"reelkeep/internal/store"
	"reelkeep/internal/tmdb"
)

const (
	colWatchLater  = "watchLater"
	colHiddenGems  = "hiddenGems"
	colWatchStatus = "watchStatus"
	colReviews     = "reviews"

	listTTL          = 5 * time.Minute
	detailTTL        = 5 * time.Minute
	detailConcurrent = 4
)

type Ref struct {
	MediaID   int64
	MediaType string
}

type DetailSource interface {
	Details(ctx context.Context, kind string, id int64) (*tmdb.Detail, error)
}

type Service struct {
	store   *store.Store
	catalog DetailSource

	watchLater  *cache.TTLCache[[]store.WatchLaterEntry]
	hiddenGems  *cache.TTLCache[[]store.HiddenGemEntry]
	watchStatus *cache.TTLCache[[]store.WatchStatusEntry]
	reviews     *cache.TTLCache[[]store.ReviewEntry]
	details     *cache.TTLCache[[]tmdb.Detail]

	locks keyedLocks
}

func NewService(st *store.Store, catalog DetailSource) *Service {
	return &Service{
		store:       st,
		catalog:     catalog,
		watchLater:  cache.NewTTL[[]store.WatchLaterEntry](listTTL),
		hiddenGems:  cache.NewTTL[[]store.HiddenGemEntry](listTTL),
		watchStatus: cache.NewTTL[[]store.WatchStatusEntry](listTTL),
		reviews:     cache.NewTTL[[]store.ReviewEntry](listTTL),
		details:     cache.NewTTL[[]tmdb.Detail](detailTTL),
	}
}

// keyedLocks serializes mutations per (collection, user).
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) *sync.Mutex {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l
}

func requireUser(userID string) error {
	if userID == "" {
		return auth.ErrNotAuthenticated
	}
	return nil
}

// invalidate drops the collection's list cache and any detail batches
// derived from it. Called only after a successful mutation.
func (s *Service) invalidate(collection, userID string) {
	key := cache.Key(collection, userID)
	switch collection {
	case colWatchLater:
		s.watchLater.Invalidate(key)
	case colHiddenGems:
		s.hiddenGems.Invalidate(key)
	case colWatchStatus:
		s.watchStatus.Invalidate(key)
	case colReviews:
		s.reviews.Invalidate(key)
	}
	s.details.InvalidatePrefix(cache.Key(collection+"Details", userID))
}

// Watch later

func (s *Service) ListWatchLater(ctx context.Context, userID string) ([]store.WatchLaterEntry, error) {
	if userID == "" {
		return []store.WatchLaterEntry{}, nil
	}
	key := cache.Key(colWatchLater, userID)
	if cached, ok := s.watchLater.Get(key); ok {
		return cached, nil
	}
	out, err := s.store.ListWatchLater(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.watchLater.Set(key, out)
	return out, nil
}

func (s *Service) AddWatchLater(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	l := s.locks.lock(cache.Key(colWatchLater, userID))
	defer l.Unlock()

	if err := s.store.AddWatchLater(ctx, userID, mediaID, mediaType); err != nil {
		return err
	}
	s.invalidate(colWatchLater, userID)
	return nil
}

func (s *Service) RemoveWatchLater(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	l := s.locks.lock(cache.Key(colWatchLater, userID))
	defer l.Unlock()

	if err := s.store.RemoveWatchLater(ctx, userID, mediaID, mediaType); err != nil {
		return err
	}
	s.invalidate(colWatchLater, userID)
	return nil
}

// Hidden gems

func (s *Service) ListHiddenGems(ctx context.Context, userID string) ([]store.HiddenGemEntry, error) {
	if userID == "" {
		return []store.HiddenGemEntry{}, nil
	}
	key := cache.Key(colHiddenGems, userID)
	if cached, ok := s.hiddenGems.Get(key); ok {
		return cached, nil
	}
	out, err := s.store.ListHiddenGems(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.hiddenGems.Set(key, out)
	return out, nil
}

func (s *Service) AddHiddenGem(ctx context.Context, userID string, mediaID int64, mediaType string, notes *string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	l := s.locks.lock(cache.Key(colHiddenGems, userID))
	defer l.Unlock()

	if err := s.store.AddHiddenGem(ctx, userID, mediaID, mediaType, notes); err != nil {
		return err
	}
	s.invalidate(colHiddenGems, userID)
	return nil
}

func (s *Service) UpdateHiddenGemNotes(ctx context.Context, userID string, mediaID int64, mediaType, notes string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	l := s.locks.lock(cache.Key(colHiddenGems, userID))
	defer l.Unlock()

	if err := s.store.UpdateHiddenGemNotes(ctx, userID, mediaID, mediaType, notes); err != nil {
		return err
	}
	s.invalidate(colHiddenGems, userID)
	return nil
}

func (s *Service) RemoveHiddenGem(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	l := s.locks.lock(cache.Key(colHiddenGems, userID))
	defer l.Unlock()

	if err := s.store.RemoveHiddenGem(ctx, userID, mediaID, mediaType); err != nil {
		return err
	}
	s.invalidate(colHiddenGems, userID)
	return nil
}

// Watch status

func (s *Service) ListWatchStatus(ctx context.Context, userID string) ([]store.WatchStatusEntry, error) {
	if userID == "" {
		return []store.WatchStatusEntry{}, nil
	}
	key := cache.Key(colWatchStatus, userID)
	if cached, ok := s.watchStatus.Get(key); ok {
		return cached, nil
	}
	out, err := s.store.ListWatchStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.watchStatus.Set(key, out)
	return out, nil
}

func (s *Service) SetWatchStatus(ctx context.Context, userID string, mediaID int64, mediaType, status string, notes *string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	l := s.locks.lock(cache.Key(colWatchStatus, userID))
	defer l.Unlock()

	if err := s.store.SetWatchStatus(ctx, userID, mediaID, mediaType, status, notes); err != nil {
		return err
	}
	s.invalidate(colWatchStatus, userID)
	return nil
}

func (s *Service) RemoveWatchStatus(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	l := s.locks.lock(cache.Key(colWatchStatus, userID))
	defer l.Unlock()

	if err := s.store.RemoveWatchStatus(ctx, userID, mediaID, mediaType); err != nil {
		return err
	}
	s.invalidate(colWatchStatus, userID)
	return nil
}

// Reviews

func (s *Service) ListReviews(ctx context.Context, userID string) ([]store.ReviewEntry, error) {
	if userID == "" {
		return []store.ReviewEntry{}, nil
	}
	key := cache.Key(colReviews, userID)
	if cached, ok := s.reviews.Get(key); ok {
		return cached, nil
	}
	out, err := s.store.ListReviews(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.reviews.Set(key, out)
	return out, nil
}

func (s *Service) ListMediaReviews(ctx context.Context, mediaID int64, mediaType string) ([]store.ReviewEntry, error) {
	return s.store.ListMediaReviews(ctx, mediaID, mediaType)
}

func (s *Service) UpsertReview(ctx context.Context, userID string, mediaID int64, mediaType string, rating int64, text *string, spoilers bool) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	l := s.locks.lock(cache.Key(colReviews, userID))
	defer l.Unlock()

	if err := s.store.UpsertReview(ctx, userID, mediaID, mediaType, rating, text, spoilers); err != nil {
		return err
	}
	s.invalidate(colReviews, userID)
	return nil
}

func (s *Service) RemoveReview(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	l := s.locks.lock(cache.Key(colReviews, userID))
	defer l.Unlock()

	if err := s.store.RemoveReview(ctx, userID, mediaID, mediaType); err != nil {
		return err
	}
	s.invalidate(colReviews, userID)
	return nil
}

// ResolveWatchLater fetches catalog details for the user's watch-later
// entries. An entry whose individual fetch fails is dropped, not fatal.
func (s *Service) ResolveWatchLater(ctx context.Context, userID string) ([]tmdb.Detail, error) {
	entries, err := s.ListWatchLater(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs := make([]Ref, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, Ref{MediaID: e.MediaID, MediaType: e.MediaType})
	}
	return s.resolveDetails(ctx, colWatchLater, userID, refs)
}

// ResolveHiddenGems does the same for the hidden-gems list.
func (s *Service) ResolveHiddenGems(ctx context.Context, userID string) ([]tmdb.Detail, error) {
	entries, err := s.ListHiddenGems(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs := make([]Ref, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, Ref{MediaID: e.MediaID, MediaType: e.MediaType})
	}
	return s.resolveDetails(ctx, colHiddenGems, userID, refs)
}

// resolveDetails caches the resolved batch under a key derived from the
// entry set identity, so a collection mutation evicts it via prefix.
func (s *Service) resolveDetails(ctx context.Context, collection, userID string, refs []Ref) ([]tmdb.Detail, error) {
	key := cache.Key(collection+"Details", userID, refsHash(refs))
	if cached, ok := s.details.Get(key); ok {
		return cached, nil
	}

	results := make([]*tmdb.Detail, len(refs))
	p := pool.New().WithMaxGoroutines(detailConcurrent)
	for i, ref := range refs {
		p.Go(func() {
			detail, err := s.catalog.Details(ctx, ref.MediaType, ref.MediaID)
			if err != nil {
				slog.Warn("detail fetch failed, dropping entry",
					slog.Int64("media_id", ref.MediaID),
					slog.String("media_type", ref.MediaType),
					logger.Error(err))
				return
			}
			results[i] = detail
		})
	}
	p.Wait()

	out := make([]tmdb.Detail, 0, len(results))
	for _, d := range results {
		if d != nil {
			out = append(out, *d)
		}
	}
	s.details.Set(key, out)
	return out, nil
}

func refsHash(refs []Ref) string {
	h := fnv.New64a()
	for _, ref := range refs {
		fmt.Fprintf(h, "%d:%s;", ref.MediaID, ref.MediaType)
	}
	return fmt.Sprintf("%x", h.Sum64())
}
