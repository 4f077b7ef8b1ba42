package view_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelkeep/internal/genres"
	"reelkeep/internal/store"
	"reelkeep/internal/tmdb"
	"reelkeep/internal/view"
)

func TestFormatRating(t *testing.T) {
	assert.Equal(t, "N/A", view.FormatRating(0))
	assert.Equal(t, "N/A", view.FormatRating(-1))
	assert.Equal(t, "8.4", view.FormatRating(8.438))
	assert.Equal(t, "10.0", view.FormatRating(10))
}

func TestImagesURL(t *testing.T) {
	im := view.NewImages("https://image.tmdb.org/t/p")

	assert.Equal(t, "https://image.tmdb.org/t/p/w342/abc.jpg", im.URL("/abc.jpg", view.WidthMedium))
	assert.Equal(t, "", im.URL("", view.WidthMedium), "missing path yields no URL")
	assert.Equal(t, "https://image.tmdb.org/t/p", im.Base())
}

func TestCardForUsesFirstResolvableGenre(t *testing.T) {
	lookup := genres.Lookup{35: "Comedy", 18: "Drama"}
	item := tmdb.Item{
		ID:          550,
		Kind:        "movie",
		Title:       "Fight Club",
		GenreIDs:    []int{999, 18, 35},
		VoteAverage: 8.4,
		PosterPath:  "/poster.jpg",
	}

	card := view.CardFor(item, lookup, nil, view.NewImages("https://img"))
	assert.Equal(t, "Drama", card.PrimaryGenre)
	assert.Equal(t, "8.4", card.Rating)
	assert.Equal(t, "https://img/w342/poster.jpg", card.PosterURL)
}

func TestCardForWithNoResolvableGenreLeavesItBlank(t *testing.T) {
	item := tmdb.Item{ID: 550, Kind: "movie", GenreIDs: []int{999}}

	card := view.CardFor(item, genres.Lookup{}, nil, view.NewImages(""))
	assert.Empty(t, card.PrimaryGenre)
}

func TestMembershipIndexFlagsAllFourCollections(t *testing.T) {
	idx := view.NewMembershipIndex(
		[]store.WatchLaterEntry{{MediaID: 550, MediaType: "movie"}},
		[]store.HiddenGemEntry{{
			MediaID: 550, MediaType: "movie",
			Notes: sql.Null[string]{Valid: true, V: "underrated"},
		}},
		[]store.WatchStatusEntry{{MediaID: 550, MediaType: "movie", Status: store.StatusWatched}},
		[]store.ReviewEntry{{
			MediaID: 550, MediaType: "movie", Rating: 9,
			ReviewText: sql.Null[string]{Valid: true, V: "great"},
		}},
	)

	m := idx.For(550, "movie")
	assert.True(t, m.WatchLater)
	assert.True(t, m.HiddenGem)
	require.NotNil(t, m.GemNotes)
	assert.Equal(t, "underrated", *m.GemNotes)
	require.NotNil(t, m.WatchStatus)
	assert.Equal(t, store.StatusWatched, *m.WatchStatus)
	require.NotNil(t, m.Review)
	assert.Equal(t, int64(9), m.Review.Rating)
	require.NotNil(t, m.Review.Text)
	assert.Equal(t, "great", *m.Review.Text)
}

func TestMembershipKeysOnBothIDAndKind(t *testing.T) {
	idx := view.NewMembershipIndex(
		[]store.WatchLaterEntry{{MediaID: 550, MediaType: "movie"}},
		nil, nil, nil,
	)

	assert.True(t, idx.For(550, "movie").WatchLater)
	assert.False(t, idx.For(550, "tv").WatchLater, "same id under another kind is a different item")
	assert.False(t, idx.For(680, "movie").WatchLater)
}

func TestNilIndexMeansSignedOut(t *testing.T) {
	var idx *view.MembershipIndex

	m := idx.For(550, "movie")
	assert.False(t, m.WatchLater)
	assert.False(t, m.HiddenGem)
	assert.Nil(t, m.WatchStatus)
	assert.Nil(t, m.Review)
}

func TestCardsPreservesInputOrder(t *testing.T) {
	items := []tmdb.Item{
		{ID: 1, Kind: "movie", Title: "a"},
		{ID: 2, Kind: "tv", Title: "b"},
	}

	cards := view.Cards(items, genres.Lookup{}, nil, view.NewImages(""))
	require.Len(t, cards, 2)
	assert.Equal(t, int64(1), cards[0].ID)
	assert.Equal(t, int64(2), cards[1].ID)
}
