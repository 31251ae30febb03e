package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gourmet/internal/config"
	"gourmet/internal/geo"
	"gourmet/internal/model"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Client fetches restaurant candidates from the GoFood-style delivery API.
// The API is paginated, rate limited, and authenticated with a session
// cookie; the client owns pagination, backoff, and deduplication.
type Client struct {
	cfg        *config.GofoodConfig
	session    *Session
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*outletPage]
}

// NewClient creates a candidate source client
func NewClient(cfg *config.GofoodConfig, session *Session) *Client {
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker[*outletPage](gobreaker.Settings{
		Name:    "gofood",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Candidate source breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Client{
		cfg:     cfg,
		session: session,
		breaker: cb,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxConnsPerHost: cfg.MaxConns,
			},
		},
	}
}

// outlet is one restaurant in a source page
type outlet struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Address      string            `json:"address"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	CuisineTypes []string          `json:"cuisine_types"`
	Rating       float64           `json:"rating"`
	PriceRange   string            `json:"price_range"`
	Hours        map[string]string `json:"hours"`
	OpenNow      *bool             `json:"open_now"`
	URL          string            `json:"url"`
	PopularItems []struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Price       float64  `json:"price"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		ImageURL    *string  `json:"image_url"`
	} `json:"popular_items"`
	Extra map[string]any `json:"-"`
}

// outletPage is one page of the paginated outlet listing
type outletPage struct {
	Outlets    []outlet `json:"outlets"`
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
}

// FetchCandidates fetches up to maxCount restaurants around coords. The
// returned partial flag is true when an upstream failure cut the fetch short
// after at least one successful page. Candidates are deduplicated by id in
// first-seen order and their distance is computed from coords, never taken
// from the source.
func (c *Client) FetchCandidates(ctx context.Context, coords model.Coordinates, radiusKm float64, maxCount int) ([]model.RestaurantCandidate, bool, error) {
	if err := coords.Validate(); err != nil {
		return nil, false, model.NewPipelineError(model.CodeInvalidCoordinates, "invalid coordinates supplied", err)
	}
	if radiusKm <= 0 {
		return nil, false, model.NewPipelineError(model.CodeInvalidInput, "radius must be positive", nil)
	}
	if maxCount <= 0 || maxCount > c.cfg.MaxCandidates {
		maxCount = c.cfg.MaxCandidates
	}

	seen := make(map[string]bool)
	candidates := make([]model.RestaurantCandidate, 0, maxCount)

	// Hard page ceiling: a source that keeps serving duplicate outlets with
	// total_pages unset must not keep the loop alive.
	pageSize := c.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	maxPages := (c.cfg.MaxCandidates+pageSize-1)/pageSize + 1

	page := 1
	for len(candidates) < maxCount && page <= maxPages {
		result, err := c.fetchPage(ctx, coords, radiusKm, page)
		if err != nil {
			if len(candidates) > 0 {
				log.Printf("Warning: candidate fetch degraded to partial result after page %d: %v", page-1, err)
				return candidates, true, nil
			}
			return nil, false, err
		}

		for _, o := range result.Outlets {
			if o.ID == "" || seen[o.ID] {
				continue
			}
			seen[o.ID] = true
			candidates = append(candidates, c.toCandidate(o, coords))
			if len(candidates) >= maxCount {
				break
			}
		}

		if result.TotalPages > 0 && page >= result.TotalPages {
			break
		}
		if len(result.Outlets) == 0 {
			break
		}
		page++
	}

	return candidates, false, nil
}

// fetchPage requests one page, retrying rate-limit and transient failures a
// bounded number of times. All calls run through the circuit breaker; an open
// breaker fails the page immediately.
func (c *Client) fetchPage(ctx context.Context, coords model.Coordinates, radiusKm float64, page int) (*outletPage, error) {
	backoff := c.cfg.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, model.NewPipelineError(model.CodeDeadlineExceeded, "candidate fetch cancelled", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
		}

		result, err := c.breaker.Execute(func() (*outletPage, error) {
			return c.doPage(ctx, coords, radiusKm, page)
		})
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if !isRetryable(err) {
			break
		}
	}

	var pe *model.PipelineError
	if errors.As(lastErr, &pe) {
		return nil, lastErr
	}
	return nil, model.NewPipelineError(model.CodeUpstreamUnavailable, "candidate source unavailable", lastErr)
}

// retryableError marks failures worth another attempt (429, 5xx, timeouts)
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

func (c *Client) doPage(ctx context.Context, coords model.Coordinates, radiusKm float64, page int) (*outletPage, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("radius_km", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.cfg.PageSize))

	reqURL := fmt.Sprintf("%s?%s", c.cfg.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if cookie := c.session.Cookie(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, model.NewPipelineError(model.CodeDeadlineExceeded, "candidate fetch cancelled", err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &retryableError{fmt.Errorf("candidate source request timed out: %w", err)}
		}
		return nil, &retryableError{fmt.Errorf("candidate source request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{fmt.Errorf("failed to read candidate source response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &retryableError{fmt.Errorf("candidate source returned status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("candidate source rejected session credential with status %d", resp.StatusCode)
	default:
		return nil, fmt.Errorf("candidate source returned status %d", resp.StatusCode)
	}

	var result outletPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("malformed candidate source response: %w", err)
	}
	return &result, nil
}

func (c *Client) toCandidate(o outlet, origin model.Coordinates) model.RestaurantCandidate {
	coords := model.Coordinates{Latitude: o.Latitude, Longitude: o.Longitude}
	cand := model.RestaurantCandidate{
		ID:           o.ID,
		Name:         o.Name,
		Address:      o.Address,
		Coordinates:  coords,
		CuisineTypes: o.CuisineTypes,
		Rating:       o.Rating,
		PriceRange:   o.PriceRange,
		Hours:        o.Hours,
		OpenNow:      o.OpenNow,
		GofoodURL:    o.URL,
		DistanceKm:   geo.Distance(origin, coords),
		Raw:          o.Extra,
	}
	for _, item := range o.PopularItems {
		cand.PopularItems = append(cand.PopularItems, model.FoodItem{
			ID:          item.ID,
			Name:        item.Name,
			Price:       item.Price,
			Description: item.Description,
			Tags:        item.Tags,
			ImageURL:    item.ImageURL,
		})
	}
	return cand
}
