package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gourmet/internal/config"
	"gourmet/internal/model"
)

// Resolver translates between addresses and coordinates using a
// Nominatim-compatible provider.
type Resolver struct {
	cfg        *config.GeocoderConfig
	httpClient *http.Client
}

// NewResolver creates a resolver for the configured provider
func NewResolver(cfg *config.GeocoderConfig) *Resolver {
	return &Resolver{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxConnsPerHost: cfg.MaxConns,
			},
		},
	}
}

// nominatimPlace is one entry of a Nominatim search/reverse response
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Country     string `json:"country"`
		Postcode    string `json:"postcode"`
	} `json:"address"`
}

// Geocode resolves a free-text address to coordinates. Input is validated
// before any network call; a location that the provider cannot resolve is a
// non-retryable invalid-address failure.
func (r *Resolver) Geocode(ctx context.Context, address string) (*model.GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, model.NewPipelineError(model.CodeInvalidAddress, "address must not be empty", nil)
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")

	var places []nominatimPlace
	if err := r.call(ctx, "/search", params, &places); err != nil {
		return nil, err
	}

	if len(places) == 0 {
		return nil, model.NewPipelineError(model.CodeInvalidAddress,
			fmt.Sprintf("could not geocode address: %s", address), nil)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, model.NewPipelineError(model.CodeUpstreamUnavailable, "malformed geocoder response", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, model.NewPipelineError(model.CodeUpstreamUnavailable, "malformed geocoder response", err)
	}

	result := &model.GeocodeResult{
		Latitude:         lat,
		Longitude:        lon,
		FormattedAddress: places[0].DisplayName,
	}
	if err := result.Coords().Validate(); err != nil {
		return nil, model.NewPipelineError(model.CodeUpstreamUnavailable, "geocoder returned invalid coordinates", err)
	}
	return result, nil
}

// ReverseGeocode resolves coordinates to a street address
func (r *Resolver) ReverseGeocode(ctx context.Context, coords model.Coordinates) (*model.Address, error) {
	if err := coords.Validate(); err != nil {
		return nil, model.NewPipelineError(model.CodeInvalidCoordinates, "invalid coordinates supplied", err)
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("format", "json")

	var place nominatimPlace
	if err := r.call(ctx, "/reverse", params, &place); err != nil {
		return nil, err
	}

	if place.DisplayName == "" {
		return nil, model.NewPipelineError(model.CodeInvalidCoordinates,
			fmt.Sprintf("could not reverse geocode coordinates: %f, %f", coords.Latitude, coords.Longitude), nil)
	}

	city := place.Address.City
	if city == "" {
		city = place.Address.Town
	}
	if city == "" {
		city = place.Address.Village
	}
	street := strings.TrimSpace(place.Address.HouseNumber + " " + place.Address.Road)

	addr := &model.Address{FormattedAddress: place.DisplayName}
	addr.Street = optional(street)
	addr.City = optional(city)
	addr.State = optional(place.Address.State)
	addr.Country = optional(place.Address.Country)
	addr.PostalCode = optional(place.Address.Postcode)
	return addr, nil
}

// call performs one provider request with bounded retries. Only transient
// failures (timeouts, 5xx, 429) are retried; everything else fails fast.
func (r *Resolver) call(ctx context.Context, path string, params url.Values, target any) error {
	backoff := r.cfg.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return model.NewPipelineError(model.CodeDeadlineExceeded, "geocoding cancelled", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > r.cfg.MaxBackoff {
				backoff = r.cfg.MaxBackoff
			}
		}

		retryable, err := r.callOnce(ctx, path, params, target)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}

	return model.NewPipelineError(model.CodeUpstreamUnavailable, "geocoding service unavailable", lastErr)
}

func (r *Resolver) callOnce(ctx context.Context, path string, params url.Values, target any) (retryable bool, err error) {
	reqURL := fmt.Sprintf("%s%s?%s", r.cfg.BaseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return true, fmt.Errorf("geocoder request timed out: %w", err)
		}
		if errors.Is(err, context.Canceled) {
			return false, model.NewPipelineError(model.CodeDeadlineExceeded, "geocoding cancelled", err)
		}
		return true, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("failed to read geocoder response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	default:
		return false, model.NewPipelineError(model.CodeInvalidAddress,
			fmt.Sprintf("geocoder rejected request with status %d", resp.StatusCode), nil)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return false, model.NewPipelineError(model.CodeUpstreamUnavailable, "malformed geocoder response", err)
	}
	return false, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
