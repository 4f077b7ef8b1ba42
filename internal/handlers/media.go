package handlers

import (
	"log/slog"
	"net/http"

	"github.com/sourcegraph/conc/pool"

	"reelkeep/internal/logger"
	"reelkeep/internal/store"
	"reelkeep/internal/tmdb"
	"reelkeep/internal/view"
)

type mediaResponse struct {
	Detail      *tmdb.Detail      `json:"detail"`
	PosterURL   string            `json:"poster_url,omitempty"`
	BackdropURL string            `json:"backdrop_url,omitempty"`
	Rating      string            `json:"rating"`
	Cast        []tmdb.CastMember `json:"cast"`
	Similar     []view.Card       `json:"similar"`
	Membership  view.Membership   `json:"membership"`
}

// getMedia composes the item page: details are required, credits and
// similar items degrade to empty sections when their fetches fail.
func (h *Handler) getMedia(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	kind, err := kindParam(r)
	if err != nil {
		return notFound("not found")
	}
	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	detail, err := h.catalog.Details(ctx, kind, id)
	if err != nil {
		return badGateway(readErrorMessage(err))
	}

	var cast []tmdb.CastMember
	var similar tmdb.Page
	p := pool.New()
	p.Go(func() {
		var err error
		cast, err = h.catalog.Credits(ctx, kind, id)
		if err != nil {
			slog.Warn("credits fetch failed", logger.Error(err))
		}
	})
	p.Go(func() {
		var err error
		similar, err = h.catalog.Similar(ctx, kind, id, 1)
		if err != nil {
			slog.Warn("similar fetch failed", logger.Error(err))
		}
	})
	p.Wait()

	if cast == nil {
		cast = []tmdb.CastMember{}
	}

	idx := h.membershipIndex(ctx)
	writeJSON(w, http.StatusOK, &mediaResponse{
		Detail:      detail,
		PosterURL:   h.images.URL(detail.PosterPath, view.WidthLarge),
		BackdropURL: h.images.URL(detail.BackdropPath, view.WidthLarge),
		Rating:      view.FormatRating(detail.VoteAverage),
		Cast:        cast,
		Similar:     h.cards(ctx, similar.Items),
		Membership:  idx.For(id, kind),
	})
	return nil
}

type reviewJSON struct {
	UserID           string  `json:"user_id"`
	MediaID          int64   `json:"media_id"`
	MediaType        string  `json:"media_type"`
	Rating           int64   `json:"rating"`
	Text             *string `json:"text,omitempty"`
	ContainsSpoilers bool    `json:"contains_spoilers"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func toReviewJSON(entries []store.ReviewEntry) []reviewJSON {
	out := make([]reviewJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, reviewJSON{
			UserID:           e.UserID,
			MediaID:          e.MediaID,
			MediaType:        e.MediaType,
			Rating:           e.Rating,
			Text:             fromSQLNull(e.ReviewText),
			ContainsSpoilers: e.ContainsSpoilers,
			CreatedAt:        e.CreatedAt,
			UpdatedAt:        e.UpdatedAt,
		})
	}
	return out
}

func (h *Handler) getMediaReviews(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	kind, err := kindParam(r)
	if err != nil {
		return notFound("not found")
	}
	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	entries, err := h.collections.ListMediaReviews(ctx, id, kind)
	if err != nil {
		return internal(err)
	}
	writeJSON(w, http.StatusOK, toReviewJSON(entries))
	return nil
}
