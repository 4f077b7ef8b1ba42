// Package handlers wires HTTP routing and API handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reelkeep/internal/auth"
	"reelkeep/internal/browse"
	"reelkeep/internal/collections"
	"reelkeep/internal/genres"
	"reelkeep/internal/tmdb"
	"reelkeep/internal/view"
)

type Handler struct {
	collections *collections.Service
	catalog     *tmdb.Client
	genres      *genres.Builder
	verifier    *auth.Verifier
	browsers    *browse.Registry
	images      view.Images
}

type Config struct {
	Collections *collections.Service
	Catalog     *tmdb.Client
	Genres      *genres.Builder
	Verifier    *auth.Verifier
	ImageBase   string
}

func New(cfg Config) (*Handler, error) {
	if cfg.Collections == nil {
		return nil, errors.New("collections service is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog client is required")
	}
	if cfg.Genres == nil {
		return nil, errors.New("genre builder is required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("verifier is required")
	}

	return &Handler{
		collections: cfg.Collections,
		catalog:     cfg.Catalog,
		genres:      cfg.Genres,
		verifier:    cfg.Verifier,
		browsers:    browse.NewRegistry(),
		images:      view.NewImages(cfg.ImageBase),
	}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(h.verifier.Middleware)

	r.Method(http.MethodGet, "/session", Adapt(h.getSession))

	r.Method(http.MethodGet, "/browse", Adapt(h.getBrowse))
	r.Method(http.MethodPost, "/browse/feed", Adapt(h.postBrowseFeed))
	r.Method(http.MethodPost, "/browse/search", Adapt(h.postBrowseSearch))
	r.Method(http.MethodPost, "/browse/page", Adapt(h.postBrowsePage))

	r.Route("/media/{kind:movie|tv}/{id:[0-9]+}", func(r chi.Router) {
		r.Method(http.MethodGet, "/", Adapt(h.getMedia))
		r.Method(http.MethodGet, "/reviews", Adapt(h.getMediaReviews))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.MiddlewareRequireAuth)

		r.Route("/watch-later", func(r chi.Router) {
			r.Method(http.MethodGet, "/", Adapt(h.getWatchLater))
			r.Method(http.MethodGet, "/resolved", Adapt(h.getWatchLaterResolved))
			r.Method(http.MethodPost, "/", Adapt(h.postWatchLater))
			r.Method(http.MethodDelete, "/", Adapt(h.deleteWatchLater))
		})

		r.Route("/hidden-gems", func(r chi.Router) {
			r.Method(http.MethodGet, "/", Adapt(h.getHiddenGems))
			r.Method(http.MethodGet, "/resolved", Adapt(h.getHiddenGemsResolved))
			r.Method(http.MethodPost, "/", Adapt(h.postHiddenGems))
			r.Method(http.MethodPatch, "/", Adapt(h.patchHiddenGemNotes))
			r.Method(http.MethodDelete, "/", Adapt(h.deleteHiddenGem))
		})

		r.Route("/watch-status", func(r chi.Router) {
			r.Method(http.MethodGet, "/", Adapt(h.getWatchStatus))
			r.Method(http.MethodPost, "/", Adapt(h.postWatchStatus))
			r.Method(http.MethodDelete, "/", Adapt(h.deleteWatchStatus))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Method(http.MethodGet, "/", Adapt(h.getReviews))
			r.Method(http.MethodPost, "/", Adapt(h.postReview))
			r.Method(http.MethodDelete, "/", Adapt(h.deleteReview))
		})
	})
}

type sessionResponse struct {
	Authenticated bool    `json:"authenticated"`
	UserID        *string `json:"user_id,omitempty"`
	ImageBase     string  `json:"image_base"`
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) error {
	resp := &sessionResponse{ImageBase: h.images.Base()}
	if userID := auth.UserID(r.Context()); userID != "" {
		resp.Authenticated = true
		resp.UserID = ptr(userID)
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}
