package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ErrSeriesNotFound means the provider has no entry for the title. This is
// an expected outcome for obscure or misdecomposed titles and is never
// treated as a failure by callers.
var ErrSeriesNotFound = errors.New("series not found")

// EpisodeTotals is the enrichment payload for a TV series.
type EpisodeTotals struct {
	TotalSeasons  int
	TotalEpisodes int
	ExternalID    int
}

// EpisodeTotalsProvider looks up season/episode totals for a series by title.
type EpisodeTotalsProvider interface {
	LookupEpisodeTotals(ctx context.Context, title string) (*EpisodeTotals, error)
}

// TMDBClient resolves series metadata through The Movie Database API:
// a search by title followed by a detail fetch for the best match.
type TMDBClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewTMDBClient(apiKey string) *TMDBClient {
	return &TMDBClient{
		apiKey:  apiKey,
		baseURL: "https://api.themoviedb.org/3",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTMDBClientFromEnv returns a client configured from TMDB_API_KEY, or nil
// when the key is not set. A nil provider disables enrichment.
func NewTMDBClientFromEnv() *TMDBClient {
	key := os.Getenv("TMDB_API_KEY")
	if key == "" {
		return nil
	}
	return NewTMDBClient(key)
}

type tmdbSearchResponse struct {
	Results []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"results"`
}

type tmdbSeriesDetail struct {
	ID               int `json:"id"`
	NumberOfSeasons  int `json:"number_of_seasons"`
	NumberOfEpisodes int `json:"number_of_episodes"`
}

// LookupEpisodeTotals searches for the series and returns the totals of the
// first match.
func (c *TMDBClient) LookupEpisodeTotals(ctx context.Context, title string) (*EpisodeTotals, error) {
	var search tmdbSearchResponse
	query := url.Values{"api_key": {c.apiKey}, "query": {title}}
	if err := c.get(ctx, "/search/tv", query, &search); err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSeriesNotFound, title)
	}

	var detail tmdbSeriesDetail
	path := fmt.Sprintf("/tv/%d", search.Results[0].ID)
	if err := c.get(ctx, path, url.Values{"api_key": {c.apiKey}}, &detail); err != nil {
		return nil, err
	}

	return &EpisodeTotals{
		TotalSeasons:  detail.NumberOfSeasons,
		TotalEpisodes: detail.NumberOfEpisodes,
		ExternalID:    detail.ID,
	}, nil
}

func (c *TMDBClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSeriesNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}
