package tmdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelkeep/internal/tmdb"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *tmdb.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return tmdb.New("test-key", "").WithBaseURL(srv.URL)
}

func TestTrendingNormalizesMixedResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending/all/week", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Write([]byte(`{
			"page": 1, "total_pages": 3, "total_results": 55,
			"results": [
				{"id": 550, "media_type": "movie", "title": "Fight Club", "release_date": "1999-10-15", "vote_average": 8.4},
				{"id": 1399, "media_type": "tv", "name": "Game of Thrones", "first_air_date": "2011-04-17", "vote_average": 8.2},
				{"id": 7, "media_type": "person", "name": "Somebody"}
			]
		}`))
	})

	page, err := c.Trending(context.Background(), 1)
	require.NoError(t, err)

	// Person results are dropped; title and date come from the kind's fields.
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Fight Club", page.Items[0].Title)
	assert.Equal(t, "1999-10-15", page.Items[0].ReleaseDate)
	assert.Equal(t, "movie", page.Items[0].Kind)
	assert.Equal(t, "Game of Thrones", page.Items[1].Title)
	assert.Equal(t, "2011-04-17", page.Items[1].ReleaseDate)
	assert.Equal(t, "tv", page.Items[1].Kind)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 55, page.TotalResults)
}

func TestNowPlayingAppliesMovieKindOverride(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/now_playing", r.URL.Path)
		// Discover-style endpoints omit media_type entirely.
		w.Write([]byte(`{
			"page": 1, "total_pages": 1, "total_results": 1,
			"results": [{"id": 550, "title": "Fight Club", "release_date": "1999-10-15"}]
		}`))
	})

	page, err := c.NowPlaying(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "movie", page.Items[0].Kind)
}

func TestPopularTVAppliesTVKindOverride(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/popular", r.URL.Path)
		w.Write([]byte(`{
			"page": 1, "total_pages": 1, "total_results": 1,
			"results": [{"id": 1399, "name": "Game of Thrones", "first_air_date": "2011-04-17"}]
		}`))
	})

	page, err := c.PopularTV(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "tv", page.Items[0].Kind)
	assert.Equal(t, "Game of Thrones", page.Items[0].Title)
}

func TestTotalPagesIsClampedTo500(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"page": 1, "total_pages": 8214, "total_results": 164280, "results": []}`))
	})

	page, err := c.Trending(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, tmdb.MaxTotalPages, page.TotalPages)
}

func TestSearchMultiWithBlankQueryDoesNotCallUpstream(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	})

	page, err := c.SearchMulti(context.Background(), "   ", 1)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), calls.Load())
}

func TestRateLimitFailsImmediatelyWithoutRetry(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Trending(context.Background(), 1)
	require.ErrorIs(t, err, tmdb.ErrRateLimited)
	assert.Equal(t, int64(1), calls.Load())
}

func TestServerErrorsAreRetriedThenSurfaced(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Trending(context.Background(), 1)
	require.ErrorIs(t, err, tmdb.ErrUnavailable)
	assert.Equal(t, int64(3), calls.Load())
}

func TestTransientFailureRecoversWithinRetryBudget(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"page": 1, "total_pages": 1, "total_results": 0, "results": []}`))
	})

	page, err := c.Trending(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, int64(2), calls.Load())
}

func TestDetailsMapsTVNameAndFirstAirDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/1399", r.URL.Path)
		w.Write([]byte(`{
			"id": 1399, "name": "Game of Thrones", "first_air_date": "2011-04-17",
			"vote_average": 8.2, "genres": [{"id": 10765, "name": "Sci-Fi & Fantasy"}]
		}`))
	})

	detail, err := c.Details(context.Background(), "tv", 1399)
	require.NoError(t, err)
	assert.Equal(t, "Game of Thrones", detail.Title)
	assert.Equal(t, "2011-04-17", detail.ReleaseDate)
	assert.Equal(t, "tv", detail.Kind)
	require.Len(t, detail.Genres, 1)
	assert.Equal(t, "Sci-Fi & Fantasy", detail.Genres[0].Name)
}

func TestDetailsRejectsUnknownKind(t *testing.T) {
	c := tmdb.New("test-key", "")

	_, err := c.Details(context.Background(), "person", 7)
	require.Error(t, err)
}

func TestReadTokenIsSentAsBearerHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"page": 1, "total_pages": 1, "total_results": 0, "results": []}`))
	}))
	t.Cleanup(srv.Close)

	c := tmdb.New("", "read-token").WithBaseURL(srv.URL)
	_, err := c.Trending(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Bearer read-token", gotAuth)
}

func TestParseYear(t *testing.T) {
	year := tmdb.ParseYear("1999-10-15")
	require.NotNil(t, year)
	assert.Equal(t, 1999, *year)

	assert.Nil(t, tmdb.ParseYear(""))
	assert.Nil(t, tmdb.ParseYear("n/a"))
}
