// Package genres merges the movie and tv genre taxonomies into one lookup.
package genres

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"reelkeep/internal/tmdb"
)

const cacheTTL = 24 * time.Hour

type Source interface {
	Genres(ctx context.Context, kind string) ([]tmdb.Genre, error)
}

// Lookup resolves a genre id to its name. The two taxonomies share an id
// space, so merge order matters: tv is applied first and movie last, meaning
// the movie name wins a collision.
type Lookup map[int]string

func (l Lookup) Name(id int) (string, bool) {
	name, ok := l[id]
	return name, ok
}

// First returns the name of the first id resolvable in the lookup.
func (l Lookup) First(ids []int) (string, bool) {
	for _, id := range ids {
		if name, ok := l[id]; ok {
			return name, true
		}
	}
	return "", false
}

// Merge builds a lookup from the tv list then the movie list.
func Merge(tvGenres, movieGenres []tmdb.Genre) Lookup {
	lookup := make(Lookup, len(tvGenres)+len(movieGenres))
	for _, g := range tvGenres {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		lookup[g.ID] = g.Name
	}
	for _, g := range movieGenres {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		lookup[g.ID] = g.Name
	}
	return lookup
}

// Builder fetches both taxonomies once and caches the merged lookup.
type Builder struct {
	source Source

	mu        sync.RWMutex
	lookup    Lookup
	fetchedAt time.Time
}

func NewBuilder(source Source) *Builder {
	return &Builder{source: source}
}

func (b *Builder) Lookup(ctx context.Context) (Lookup, error) {
	b.mu.RLock()
	if b.lookup != nil && time.Since(b.fetchedAt) < cacheTTL {
		lookup := b.lookup
		b.mu.RUnlock()
		return lookup, nil
	}
	b.mu.RUnlock()

	var movieGenres, tvGenres []tmdb.Genre
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		movieGenres, err = b.source.Genres(ctx, "movie")
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		tvGenres, err = b.source.Genres(ctx, "tv")
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	lookup := Merge(tvGenres, movieGenres)

	b.mu.Lock()
	b.lookup = lookup
	b.fetchedAt = time.Now()
	b.mu.Unlock()

	return lookup, nil
}
