package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"reelkeep/internal/auth"
	"reelkeep/internal/logger"
	"reelkeep/internal/store"
	"reelkeep/internal/tmdb"
	"reelkeep/internal/view"
)

type mediaKeyRequest struct {
	MediaID   int64  `json:"media_id"`
	MediaType string `json:"media_type"`
}

func (k mediaKeyRequest) validate() error {
	if k.MediaID <= 0 {
		return errors.New("media_id required")
	}
	if k.MediaType != "movie" && k.MediaType != "tv" {
		return errors.New("invalid media_type")
	}
	return nil
}

type addHiddenGemRequest struct {
	mediaKeyRequest
	Notes *string `json:"notes,omitempty"`
}

type updateNotesRequest struct {
	mediaKeyRequest
	Notes string `json:"notes"`
}

type setStatusRequest struct {
	mediaKeyRequest
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

type reviewRequest struct {
	mediaKeyRequest
	Rating           int64   `json:"rating"`
	Text             *string `json:"text,omitempty"`
	ContainsSpoilers bool    `json:"contains_spoilers"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// mutationFailed reports a failed mutation, naming the attempted action.
// Mutations are never retried here; the caller's cache was left untouched.
func mutationFailed(action string, err error) error {
	slog.Warn("mutation failed", slog.String("action", action), logger.Error(err))
	if errors.Is(err, auth.ErrNotAuthenticated) {
		return unauthorized("not authenticated")
	}
	return &Error{Status: http.StatusInternalServerError, Message: "failed to " + action}
}

// Watch later

type watchLaterJSON struct {
	MediaID   int64  `json:"media_id"`
	MediaType string `json:"media_type"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) getWatchLater(w http.ResponseWriter, r *http.Request) error {
	entries, err := h.collections.ListWatchLater(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		return internal(err)
	}
	out := make([]watchLaterJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, watchLaterJSON{MediaID: e.MediaID, MediaType: e.MediaType, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (h *Handler) getWatchLaterResolved(w http.ResponseWriter, r *http.Request) error {
	details, err := h.collections.ResolveWatchLater(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		return internal(err)
	}
	writeJSON(w, http.StatusOK, h.resolvedCards(r, details))
	return nil
}

func (h *Handler) postWatchLater(w http.ResponseWriter, r *http.Request) error {
	var req mediaKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if err := req.validate(); err != nil {
		return badRequest(err.Error())
	}

	ctx := r.Context()
	if err := h.collections.AddWatchLater(ctx, auth.UserID(ctx), req.MediaID, req.MediaType); err != nil {
		return mutationFailed("add to watch later", err)
	}
	writeJSON(w, http.StatusOK, &okResponse{OK: true})
	return nil
}

func (h *Handler) deleteWatchLater(w http.ResponseWriter, r *http.Request) error {
	id, kind, err := mediaKeyFromQuery(r)
	if err != nil {
		return badRequest(err.Error())
	}

	ctx := r.Context()
	if err := h.collections.RemoveWatchLater(ctx, auth.UserID(ctx), id, kind); err != nil {
		return mutationFailed("remove from watch later", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Hidden gems

type hiddenGemJSON struct {
	MediaID   int64   `json:"media_id"`
	MediaType string  `json:"media_type"`
	Notes     *string `json:"notes,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func (h *Handler) getHiddenGems(w http.ResponseWriter, r *http.Request) error {
	entries, err := h.collections.ListHiddenGems(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		return internal(err)
	}
	out := make([]hiddenGemJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, hiddenGemJSON{
			MediaID:   e.MediaID,
			MediaType: e.MediaType,
			Notes:     fromSQLNull(e.Notes),
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (h *Handler) getHiddenGemsResolved(w http.ResponseWriter, r *http.Request) error {
	details, err := h.collections.ResolveHiddenGems(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		return internal(err)
	}
	writeJSON(w, http.StatusOK, h.resolvedCards(r, details))
	return nil
}

func (h *Handler) postHiddenGems(w http.ResponseWriter, r *http.Request) error {
	var req addHiddenGemRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if err := req.validate(); err != nil {
		return badRequest(err.Error())
	}
	if req.Notes != nil && strings.TrimSpace(*req.Notes) == "" {
		req.Notes = nil
	}

	ctx := r.Context()
	if err := h.collections.AddHiddenGem(ctx, auth.UserID(ctx), req.MediaID, req.MediaType, req.Notes); err != nil {
		return mutationFailed("add to hidden gems", err)
	}
	writeJSON(w, http.StatusOK, &okResponse{OK: true})
	return nil
}

func (h *Handler) patchHiddenGemNotes(w http.ResponseWriter, r *http.Request) error {
	var req updateNotesRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if err := req.validate(); err != nil {
		return badRequest(err.Error())
	}

	ctx := r.Context()
	if err := h.collections.UpdateHiddenGemNotes(ctx, auth.UserID(ctx), req.MediaID, req.MediaType, req.Notes); err != nil {
		if isNoRows(err) {
			return notFound("not found")
		}
		return mutationFailed("update notes", err)
	}
	writeJSON(w, http.StatusOK, &okResponse{OK: true})
	return nil
}

func (h *Handler) deleteHiddenGem(w http.ResponseWriter, r *http.Request) error {
	id, kind, err := mediaKeyFromQuery(r)
	if err != nil {
		return badRequest(err.Error())
	}

	ctx := r.Context()
	if err := h.collections.RemoveHiddenGem(ctx, auth.UserID(ctx), id, kind); err != nil {
		return mutationFailed("remove from hidden gems", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Watch status

type watchStatusJSON struct {
	MediaID   int64   `json:"media_id"`
	MediaType string  `json:"media_type"`
	Status    string  `json:"status"`
	Notes     *string `json:"notes,omitempty"`
	UpdatedAt string  `json:"updated_at"`
}

func (h *Handler) getWatchStatus(w http.ResponseWriter, r *http.Request) error {
	entries, err := h.collections.ListWatchStatus(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		return internal(err)
	}
	out := make([]watchStatusJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, watchStatusJSON{
			MediaID:   e.MediaID,
			MediaType: e.MediaType,
			Status:    e.Status,
			Notes:     fromSQLNull(e.Notes),
			UpdatedAt: e.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (h *Handler) postWatchStatus(w http.ResponseWriter, r *http.Request) error {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if err := req.validate(); err != nil {
		return badRequest(err.Error())
	}
	if !store.ValidStatus(req.Status) {
		return badRequest("invalid status")
	}

	ctx := r.Context()
	if err := h.collections.SetWatchStatus(ctx, auth.UserID(ctx), req.MediaID, req.MediaType, req.Status, req.Notes); err != nil {
		return mutationFailed("update watch status", err)
	}
	writeJSON(w, http.StatusOK, &okResponse{OK: true})
	return nil
}

func (h *Handler) deleteWatchStatus(w http.ResponseWriter, r *http.Request) error {
	id, kind, err := mediaKeyFromQuery(r)
	if err != nil {
		return badRequest(err.Error())
	}

	ctx := r.Context()
	if err := h.collections.RemoveWatchStatus(ctx, auth.UserID(ctx), id, kind); err != nil {
		return mutationFailed("remove watch status", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Reviews

func (h *Handler) getReviews(w http.ResponseWriter, r *http.Request) error {
	entries, err := h.collections.ListReviews(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		return internal(err)
	}
	writeJSON(w, http.StatusOK, toReviewJSON(entries))
	return nil
}

func (h *Handler) postReview(w http.ResponseWriter, r *http.Request) error {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if err := req.validate(); err != nil {
		return badRequest(err.Error())
	}
	if req.Rating < 1 || req.Rating > 10 {
		return badRequest("rating must be between 1 and 10")
	}
	if req.Text != nil && strings.TrimSpace(*req.Text) == "" {
		req.Text = nil
	}

	ctx := r.Context()
	if err := h.collections.UpsertReview(ctx, auth.UserID(ctx), req.MediaID, req.MediaType, req.Rating, req.Text, req.ContainsSpoilers); err != nil {
		return mutationFailed("save review", err)
	}
	writeJSON(w, http.StatusOK, &okResponse{OK: true})
	return nil
}

func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) error {
	id, kind, err := mediaKeyFromQuery(r)
	if err != nil {
		return badRequest(err.Error())
	}

	ctx := r.Context()
	if err := h.collections.RemoveReview(ctx, auth.UserID(ctx), id, kind); err != nil {
		return mutationFailed("delete review", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// resolvedCards renders detail-batch results as cards.
func (h *Handler) resolvedCards(r *http.Request, details []tmdb.Detail) []view.Card {
	ctx := r.Context()
	items := make([]tmdb.Item, 0, len(details))
	for _, d := range details {
		ids := make([]int, 0, len(d.Genres))
		for _, g := range d.Genres {
			ids = append(ids, g.ID)
		}
		items = append(items, tmdb.Item{
			ID:           d.ID,
			Kind:         d.Kind,
			Title:        d.Title,
			ReleaseDate:  d.ReleaseDate,
			PosterPath:   d.PosterPath,
			BackdropPath: d.BackdropPath,
			Overview:     d.Overview,
			VoteAverage:  d.VoteAverage,
			VoteCount:    d.VoteCount,
			GenreIDs:     ids,
		})
	}
	return h.cards(ctx, items)
}
