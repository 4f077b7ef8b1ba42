package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"reelkeep/internal/auth"
	"reelkeep/internal/browse"
	"reelkeep/internal/genres"
	"reelkeep/internal/logger"
	"reelkeep/internal/tmdb"
	"reelkeep/internal/view"
)

type browseResponse struct {
	Feed         browse.Feed `json:"feed"`
	Query        string      `json:"query,omitempty"`
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
	Cards        []view.Card `json:"cards"`
	Generation   uint64      `json:"generation"`
	Stale        bool        `json:"stale,omitempty"`
	ScrollTop    bool        `json:"scroll_top,omitempty"`
	Error        string      `json:"error,omitempty"`
	Retryable    bool        `json:"retryable,omitempty"`
}

type feedRequest struct {
	Feed string `json:"feed"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type pageRequest struct {
	Page int `json:"page"`
}

func (h *Handler) controller(r *http.Request) *browse.Controller {
	// Signed-out visitors share one anonymous controller.
	return h.browsers.For(auth.UserID(r.Context()))
}

func (h *Handler) getBrowse(w http.ResponseWriter, r *http.Request) error {
	return h.renderBrowse(w, r, h.controller(r).Snapshot(), false)
}

func (h *Handler) postBrowseFeed(w http.ResponseWriter, r *http.Request) error {
	var req feedRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	feed := browse.Feed(strings.TrimSpace(req.Feed))
	if !browse.ValidFeed(feed) {
		return badRequest("invalid feed")
	}

	snap := h.controller(r).SelectFeed(feed)
	return h.renderBrowse(w, r, snap, false)
}

func (h *Handler) postBrowseSearch(w http.ResponseWriter, r *http.Request) error {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}

	snap := h.controller(r).SetSearch(strings.TrimSpace(req.Query))
	return h.renderBrowse(w, r, snap, false)
}

func (h *Handler) postBrowsePage(w http.ResponseWriter, r *http.Request) error {
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}

	snap, moved := h.controller(r).SetPage(req.Page)
	return h.renderBrowse(w, r, snap, moved)
}

// renderBrowse fetches the page the snapshot describes and renders it. A
// catalog read failure degrades to an empty result set with a retry
// affordance; the client-side bounded retry already happened inside the
// catalog client.
func (h *Handler) renderBrowse(w http.ResponseWriter, r *http.Request, snap browse.View, scrolled bool) error {
	ctx := r.Context()

	resp := &browseResponse{
		Feed:       snap.Feed,
		Query:      snap.Query,
		Page:       snap.Page,
		Generation: snap.Generation,
		ScrollTop:  scrolled,
		Cards:      []view.Card{},
	}

	page, err := h.fetchBrowse(ctx, snap)
	if err != nil {
		slog.Warn("browse fetch failed", slog.String("feed", string(snap.Feed)), logger.Error(err))
		resp.Error = readErrorMessage(err)
		resp.Retryable = true
		writeJSON(w, http.StatusOK, resp)
		return nil
	}

	// A response for an outdated generation must not update controller
	// state; the client drops it too.
	if !h.controller(r).RecordTotalPages(snap, page.TotalPages) {
		resp.Stale = true
		writeJSON(w, http.StatusOK, resp)
		return nil
	}

	resp.TotalPages = page.TotalPages
	resp.TotalResults = page.TotalResults
	resp.Cards = h.cards(ctx, page.Items)

	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *Handler) fetchBrowse(ctx context.Context, snap browse.View) (tmdb.Page, error) {
	if snap.Searching() {
		return h.catalog.SearchMulti(ctx, snap.Query, snap.Page)
	}
	switch snap.Feed {
	case browse.FeedNew:
		return h.catalog.NowPlaying(ctx, snap.Page)
	case browse.FeedTopRated:
		return h.catalog.TopRated(ctx, snap.Page)
	case browse.FeedPopularSeries:
		return h.catalog.PopularTV(ctx, snap.Page)
	default:
		return h.catalog.Trending(ctx, snap.Page)
	}
}

// cards annotates catalog items with genre names and, for a signed-in
// caller, their collection membership. Annotation failures degrade to bare
// cards rather than failing the page.
func (h *Handler) cards(ctx context.Context, items []tmdb.Item) []view.Card {
	lookup, err := h.genres.Lookup(ctx)
	if err != nil {
		slog.Warn("genre lookup unavailable", logger.Error(err))
		lookup = genres.Lookup{}
	}

	idx := h.membershipIndex(ctx)
	return view.Cards(items, lookup, idx, h.images)
}

func (h *Handler) membershipIndex(ctx context.Context) *view.MembershipIndex {
	userID := auth.UserID(ctx)
	if userID == "" {
		return nil
	}

	watchLater, err := h.collections.ListWatchLater(ctx, userID)
	if err != nil {
		slog.Warn("membership: watch later unavailable", logger.Error(err))
	}
	hiddenGems, err := h.collections.ListHiddenGems(ctx, userID)
	if err != nil {
		slog.Warn("membership: hidden gems unavailable", logger.Error(err))
	}
	watchStatus, err := h.collections.ListWatchStatus(ctx, userID)
	if err != nil {
		slog.Warn("membership: watch status unavailable", logger.Error(err))
	}
	reviews, err := h.collections.ListReviews(ctx, userID)
	if err != nil {
		slog.Warn("membership: reviews unavailable", logger.Error(err))
	}

	return view.NewMembershipIndex(watchLater, hiddenGems, watchStatus, reviews)
}

func readErrorMessage(err error) string {
	if errors.Is(err, tmdb.ErrRateLimited) {
		return "catalog rate limited"
	}
	return "catalog unavailable"
}
