// Package view derives the renderable card model for a catalog item: badges
// from the genre lookup and the caller's collection membership, and image
// URLs at the CDN's known widths. It holds no state of its own.
package view

import (
	"fmt"
	"strconv"

	"reelkeep/internal/genres"
	"reelkeep/internal/store"
	"reelkeep/internal/tmdb"
)

const (
	WidthSmall  = "w185"
	WidthMedium = "w342"
	WidthLarge  = "w780"
)

// Membership carries the caller's collection flags for one item.
type Membership struct {
	WatchLater  bool           `json:"watch_later"`
	HiddenGem   bool           `json:"hidden_gem"`
	GemNotes    *string        `json:"gem_notes,omitempty"`
	WatchStatus *string        `json:"watch_status,omitempty"`
	Review      *ReviewSummary `json:"review,omitempty"`
}

type ReviewSummary struct {
	Rating           int64   `json:"rating"`
	Text             *string `json:"text,omitempty"`
	ContainsSpoilers bool    `json:"contains_spoilers"`
}

type Card struct {
	ID           int64      `json:"id"`
	Kind         string     `json:"kind"`
	Title        string     `json:"title"`
	ReleaseDate  string     `json:"release_date,omitempty"`
	Overview     string     `json:"overview,omitempty"`
	PosterURL    string     `json:"poster_url,omitempty"`
	BackdropURL  string     `json:"backdrop_url,omitempty"`
	PrimaryGenre string     `json:"primary_genre,omitempty"`
	Rating       string     `json:"rating"`
	Membership   Membership `json:"membership"`
}

// Images builds CDN URLs for a relative path at the three known widths.
type Images struct {
	base string
}

func NewImages(base string) Images {
	return Images{base: base}
}

func (im Images) Base() string { return im.base }

func (im Images) URL(path, width string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", im.base, width, path)
}

// FormatRating renders a vote average to one decimal, or "N/A" when the
// catalog reports none.
func FormatRating(voteAverage float64) string {
	if voteAverage <= 0 {
		return "N/A"
	}
	return strconv.FormatFloat(voteAverage, 'f', 1, 64)
}

// MembershipIndex cross-references the four collections by entry key.
type MembershipIndex struct {
	watchLater  map[Ref]struct{}
	hiddenGems  map[Ref]store.HiddenGemEntry
	watchStatus map[Ref]store.WatchStatusEntry
	reviews     map[Ref]store.ReviewEntry
}

type Ref struct {
	MediaID   int64
	MediaType string
}

func NewMembershipIndex(
	watchLater []store.WatchLaterEntry,
	hiddenGems []store.HiddenGemEntry,
	watchStatus []store.WatchStatusEntry,
	reviews []store.ReviewEntry,
) *MembershipIndex {
	idx := &MembershipIndex{
		watchLater:  make(map[Ref]struct{}, len(watchLater)),
		hiddenGems:  make(map[Ref]store.HiddenGemEntry, len(hiddenGems)),
		watchStatus: make(map[Ref]store.WatchStatusEntry, len(watchStatus)),
		reviews:     make(map[Ref]store.ReviewEntry, len(reviews)),
	}
	for _, e := range watchLater {
		idx.watchLater[Ref{e.MediaID, e.MediaType}] = struct{}{}
	}
	for _, e := range hiddenGems {
		idx.hiddenGems[Ref{e.MediaID, e.MediaType}] = e
	}
	for _, e := range watchStatus {
		idx.watchStatus[Ref{e.MediaID, e.MediaType}] = e
	}
	for _, e := range reviews {
		idx.reviews[Ref{e.MediaID, e.MediaType}] = e
	}
	return idx
}

func (idx *MembershipIndex) For(id int64, kind string) Membership {
	ref := Ref{id, kind}
	m := Membership{}
	if idx == nil {
		return m
	}
	if _, ok := idx.watchLater[ref]; ok {
		m.WatchLater = true
	}
	if gem, ok := idx.hiddenGems[ref]; ok {
		m.HiddenGem = true
		if gem.Notes.Valid {
			notes := gem.Notes.V
			m.GemNotes = &notes
		}
	}
	if ws, ok := idx.watchStatus[ref]; ok {
		status := ws.Status
		m.WatchStatus = &status
	}
	if rv, ok := idx.reviews[ref]; ok {
		summary := ReviewSummary{Rating: rv.Rating, ContainsSpoilers: rv.ContainsSpoilers}
		if rv.ReviewText.Valid {
			text := rv.ReviewText.V
			summary.Text = &text
		}
		m.Review = &summary
	}
	return m
}

// CardFor derives the card for one catalog item.
func CardFor(item tmdb.Item, lookup genres.Lookup, idx *MembershipIndex, images Images) Card {
	card := Card{
		ID:          item.ID,
		Kind:        item.Kind,
		Title:       item.Title,
		ReleaseDate: item.ReleaseDate,
		Overview:    item.Overview,
		PosterURL:   images.URL(item.PosterPath, WidthMedium),
		BackdropURL: images.URL(item.BackdropPath, WidthLarge),
		Rating:      FormatRating(item.VoteAverage),
		Membership:  idx.For(item.ID, item.Kind),
	}
	if name, ok := lookup.First(item.GenreIDs); ok {
		card.PrimaryGenre = name
	}
	return card
}

// Cards derives cards for a whole result page.
func Cards(items []tmdb.Item, lookup genres.Lookup, idx *MembershipIndex, images Images) []Card {
	out := make([]Card, 0, len(items))
	for _, item := range items {
		out = append(out, CardFor(item, lookup, idx, images))
	}
	return out
}
