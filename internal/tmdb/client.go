// Package tmdb wraps the TMDB API: curated feeds, multi-search, per-item
// details and the two genre taxonomies.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// TMDB refuses pages above 500 regardless of what total_pages claims.
	MaxTotalPages = 500

	defaultBaseURL = "https://api.themoviedb.org/3"
	readAttempts   = 3
)

var (
	ErrUnavailable = errors.New("catalog unavailable")
	ErrRateLimited = errors.New("catalog rate limited")
)

type Client struct {
	apiKey    string
	readToken string
	baseURL   string
	http      *http.Client
}

type Item struct {
	ID           int64   `json:"id"`
	Kind         string  `json:"kind"`
	Title        string  `json:"title"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	GenreIDs     []int   `json:"genre_ids"`
}

type Page struct {
	Items        []Item `json:"items"`
	Page         int    `json:"page"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Detail struct {
	ID           int64   `json:"id"`
	Kind         string  `json:"kind"`
	Title        string  `json:"title"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Genres       []Genre `json:"genres"`
}

type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type listResponse struct {
	Page         int `json:"page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
	Results      []struct {
		ID           int64   `json:"id"`
		MediaType    string  `json:"media_type"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		PosterPath   string  `json:"poster_path"`
		BackdropPath string  `json:"backdrop_path"`
		Overview     string  `json:"overview"`
		VoteAverage  float64 `json:"vote_average"`
		VoteCount    int     `json:"vote_count"`
		GenreIDs     []int   `json:"genre_ids"`
	} `json:"results"`
}

type detailResponse struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Genres       []Genre `json:"genres"`
}

type creditsResponse struct {
	Cast []CastMember `json:"cast"`
}

type genreListResponse struct {
	Genres []Genre `json:"genres"`
}

func New(apiKey, readToken string) *Client {
	if strings.TrimSpace(readToken) == "" && looksLikeJWT(apiKey) {
		readToken = apiKey
		apiKey = ""
	}
	return &Client{
		apiKey:    apiKey,
		readToken: readToken,
		baseURL:   defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithBaseURL points the client at a different API root. Used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

func ValidKind(kind string) bool {
	return kind == "movie" || kind == "tv"
}

func (c *Client) Trending(ctx context.Context, page int) (Page, error) {
	return c.fetchList(ctx, "/trending/all/week", nil, page, "")
}

func (c *Client) NowPlaying(ctx context.Context, page int) (Page, error) {
	return c.fetchList(ctx, "/movie/now_playing", nil, page, "movie")
}

func (c *Client) TopRated(ctx context.Context, page int) (Page, error) {
	return c.fetchList(ctx, "/movie/top_rated", nil, page, "movie")
}

func (c *Client) PopularTV(ctx context.Context, page int) (Page, error) {
	return c.fetchList(ctx, "/tv/popular", nil, page, "tv")
}

func (c *Client) SearchMulti(ctx context.Context, query string, page int) (Page, error) {
	if strings.TrimSpace(query) == "" {
		return Page{Items: []Item{}, Page: 1, TotalPages: 1}, nil
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	return c.fetchList(ctx, "/search/multi", params, page, "")
}

func (c *Client) Details(ctx context.Context, kind string, id int64) (*Detail, error) {
	if !ValidKind(kind) {
		return nil, errors.New("invalid media kind")
	}
	var payload detailResponse
	endpoint := fmt.Sprintf("%s/%s/%d?%s", c.baseURL, kind, id, c.baseValues().Encode())
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	detail := &Detail{
		ID:           payload.ID,
		Kind:         kind,
		Title:        payload.Title,
		ReleaseDate:  payload.ReleaseDate,
		PosterPath:   payload.PosterPath,
		BackdropPath: payload.BackdropPath,
		Overview:     payload.Overview,
		VoteAverage:  payload.VoteAverage,
		VoteCount:    payload.VoteCount,
		Genres:       payload.Genres,
	}
	if kind == "tv" {
		detail.Title = payload.Name
		detail.ReleaseDate = payload.FirstAirDate
	}
	return detail, nil
}

func (c *Client) Credits(ctx context.Context, kind string, id int64) ([]CastMember, error) {
	if !ValidKind(kind) {
		return nil, errors.New("invalid media kind")
	}
	var payload creditsResponse
	endpoint := fmt.Sprintf("%s/%s/%d/credits?%s", c.baseURL, kind, id, c.baseValues().Encode())
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Cast, nil
}

func (c *Client) Similar(ctx context.Context, kind string, id int64, page int) (Page, error) {
	if !ValidKind(kind) {
		return Page{}, errors.New("invalid media kind")
	}
	return c.fetchList(ctx, fmt.Sprintf("/%s/%d/similar", kind, id), nil, page, kind)
}

func (c *Client) Genres(ctx context.Context, kind string) ([]Genre, error) {
	if !ValidKind(kind) {
		return nil, errors.New("invalid media kind")
	}
	var payload genreListResponse
	endpoint := fmt.Sprintf("%s/genre/%s/list?%s", c.baseURL, kind, c.baseValues().Encode())
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Genres, nil
}

func (c *Client) fetchList(ctx context.Context, path string, params url.Values, page int, kindOverride string) (Page, error) {
	if page < 1 {
		page = 1
	}
	values := c.baseValues()
	for k, vs := range params {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	values.Set("page", strconv.Itoa(page))
	endpoint := c.baseURL + path + "?" + values.Encode()

	var payload listResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return Page{}, err
	}

	items := make([]Item, 0, len(payload.Results))
	for i := range payload.Results {
		r := payload.Results[i]
		kind := r.MediaType
		if kindOverride != "" {
			kind = kindOverride
		}
		if !ValidKind(kind) {
			continue
		}
		item := Item{
			ID:           r.ID,
			Kind:         kind,
			PosterPath:   r.PosterPath,
			BackdropPath: r.BackdropPath,
			Overview:     r.Overview,
			VoteAverage:  r.VoteAverage,
			VoteCount:    r.VoteCount,
			GenreIDs:     r.GenreIDs,
		}
		if kind == "tv" {
			item.Title = r.Name
			item.ReleaseDate = r.FirstAirDate
		} else {
			item.Title = r.Title
			item.ReleaseDate = r.ReleaseDate
		}
		items = append(items, item)
	}

	return Page{
		Items:        items,
		Page:         payload.Page,
		TotalPages:   min(payload.TotalPages, MaxTotalPages),
		TotalResults: payload.TotalResults,
	}, nil
}

// getJSON performs one read with a small bounded retry. Rate-limited
// responses are surfaced immediately; only transient failures are retried.
func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	return retry.Do(
		func() error { return c.getJSONOnce(ctx, endpoint, dst) },
		retry.Context(ctx),
		retry.Attempts(readAttempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrRateLimited)
		}),
	)
}

func (c *Client) getJSONOnce(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(ErrRateLimited, cerr)
		}
		return ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		statusErr := fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(statusErr, cerr)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(err, cerr)
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp.Body.Close()
}

func (c *Client) baseValues() url.Values {
	values := url.Values{}
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	return values
}

func (c *Client) applyAuth(req *http.Request) {
	if strings.TrimSpace(c.readToken) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.readToken))
}

func looksLikeJWT(token string) bool {
	parts := strings.Split(strings.TrimSpace(token), ".")
	return len(parts) == 3 && len(token) > 80
}

func ParseYear(date string) *int {
	if len(date) < 4 {
		return nil
	}
	val, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &val
}
