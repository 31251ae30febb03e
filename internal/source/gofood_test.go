package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gourmet/internal/config"
	"gourmet/internal/model"
)

var origin = model.Coordinates{Latitude: -6.2088, Longitude: 106.8456}

func testClient(baseURL string) *Client {
	return NewClient(&config.GofoodConfig{
		BaseURL:          baseURL,
		SessionCookie:    "session=abc",
		PageSize:         2,
		MaxCandidates:    10,
		MaxRetries:       1,
		RetryBackoff:     time.Millisecond,
		MaxBackoff:       5 * time.Millisecond,
		Timeout:          2 * time.Second,
		MaxConns:         2,
		BreakerThreshold: 10,
		BreakerTimeout:   time.Second,
	}, NewSession("session=abc"))
}

func outletJSON(id string, lat, lon float64) string {
	return fmt.Sprintf(`{"id": %q, "name": "Resto %s", "latitude": %f, "longitude": %f, "rating": 4.2, "price_range": "$$"}`, id, id, lat, lon)
}

func TestFetchCandidatesPaginatesAndDeduplicates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Cookie"); got != "session=abc" {
			t.Errorf("Cookie header = %q, want session=abc", got)
		}
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprintf(w, `{"outlets": [%s, %s], "page": 1, "total_pages": 2}`,
				outletJSON("a", -6.21, 106.85), outletJSON("b", -6.22, 106.84))
		case "2":
			// "b" repeats across pages and must be dropped
			fmt.Fprintf(w, `{"outlets": [%s, %s], "page": 2, "total_pages": 2}`,
				outletJSON("b", -6.22, 106.84), outletJSON("c", -6.19, 106.86))
		default:
			t.Errorf("unexpected page %s", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()

	candidates, partial, err := testClient(server.URL).FetchCandidates(context.Background(), origin, 5, 0)
	if err != nil {
		t.Fatalf("FetchCandidates() error = %v", err)
	}
	if partial {
		t.Error("FetchCandidates() partial = true, want false")
	}
	if len(candidates) != 3 {
		t.Fatalf("FetchCandidates() returned %d candidates, want 3", len(candidates))
	}
	for i, want := range []string{"a", "b", "c"} {
		if candidates[i].ID != want {
			t.Errorf("candidates[%d].ID = %s, want %s (first-seen order)", i, candidates[i].ID, want)
		}
	}
	for _, c := range candidates {
		if c.DistanceKm <= 0 || c.DistanceKm > 5 {
			t.Errorf("candidate %s distance = %f, want derived value within radius", c.ID, c.DistanceKm)
		}
	}
}

func TestFetchCandidatesPartialOnLaterPageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprintf(w, `{"outlets": [%s], "page": 1, "total_pages": 3}`, outletJSON("a", -6.21, 106.85))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	candidates, partial, err := testClient(server.URL).FetchCandidates(context.Background(), origin, 5, 0)
	if err != nil {
		t.Fatalf("FetchCandidates() error = %v, want partial success", err)
	}
	if !partial {
		t.Error("FetchCandidates() partial = false, want true")
	}
	if len(candidates) != 1 || candidates[0].ID != "a" {
		t.Errorf("FetchCandidates() = %v, want the one collected candidate", candidates)
	}
}

func TestFetchCandidatesFirstPageFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, _, err := testClient(server.URL).FetchCandidates(context.Background(), origin, 5, 0)
	if !model.IsCode(err, model.CodeUpstreamUnavailable) {
		t.Errorf("FetchCandidates() error code = %s, want %s", model.ErrorCode(err), model.CodeUpstreamUnavailable)
	}
}

func TestFetchCandidatesRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, `{"outlets": [%s], "page": 1, "total_pages": 1}`, outletJSON("a", -6.21, 106.85))
	}))
	defer server.Close()

	candidates, _, err := testClient(server.URL).FetchCandidates(context.Background(), origin, 5, 0)
	if err != nil {
		t.Fatalf("FetchCandidates() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("FetchCandidates() returned %d candidates, want 1", len(candidates))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestFetchCandidatesRejectedCredentialIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, _, err := testClient(server.URL).FetchCandidates(context.Background(), origin, 5, 0)
	if err == nil {
		t.Fatal("FetchCandidates() expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestFetchCandidatesValidatesInput(t *testing.T) {
	client := testClient("http://unreachable.invalid")

	_, _, err := client.FetchCandidates(context.Background(), model.Coordinates{Latitude: 99, Longitude: 0}, 5, 0)
	if !model.IsCode(err, model.CodeInvalidCoordinates) {
		t.Errorf("bad coords error code = %s, want %s", model.ErrorCode(err), model.CodeInvalidCoordinates)
	}

	_, _, err = client.FetchCandidates(context.Background(), origin, 0, 0)
	if !model.IsCode(err, model.CodeInvalidInput) {
		t.Errorf("zero radius error code = %s, want %s", model.ErrorCode(err), model.CodeInvalidInput)
	}
}

func TestFetchCandidatesHonorsMaxCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"outlets": [%s, %s, %s], "page": 1, "total_pages": 5}`,
			outletJSON("a", -6.21, 106.85), outletJSON("b", -6.22, 106.84), outletJSON("c", -6.19, 106.86))
	}))
	defer server.Close()

	candidates, _, err := testClient(server.URL).FetchCandidates(context.Background(), origin, 5, 2)
	if err != nil {
		t.Fatalf("FetchCandidates() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Errorf("FetchCandidates() returned %d candidates, want maxCount 2", len(candidates))
	}
}

func TestFetchCandidatesDeadlineBeforeFirstPageIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"outlets": [%s], "page": 1, "total_pages": 1}`, outletJSON("a", -6.21, 106.85))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(10 * time.Millisecond)

	candidates, partial, err := testClient(server.URL).FetchCandidates(ctx, origin, 5, 0)
	if !model.IsCode(err, model.CodeDeadlineExceeded) {
		t.Errorf("FetchCandidates() error code = %s, want %s", model.ErrorCode(err), model.CodeDeadlineExceeded)
	}
	if partial {
		t.Error("FetchCandidates() partial = true, want false with nothing collected")
	}
	if len(candidates) != 0 {
		t.Errorf("FetchCandidates() returned %d candidates, want 0", len(candidates))
	}
}

func TestFetchCandidatesDeadlineAfterFirstPageIsPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprintf(w, `{"outlets": [%s], "page": 1, "total_pages": 3}`, outletJSON("a", -6.21, 106.85))
			return
		}
		// Outlive the caller's deadline so the second page times out.
		time.Sleep(300 * time.Millisecond)
		fmt.Fprintf(w, `{"outlets": [], "page": 2, "total_pages": 3}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	candidates, partial, err := testClient(server.URL).FetchCandidates(ctx, origin, 5, 0)
	if err != nil {
		t.Fatalf("FetchCandidates() error = %v, want partial success", err)
	}
	if !partial {
		t.Error("FetchCandidates() partial = false, want true after deadline cut the fetch short")
	}
	if len(candidates) != 1 || candidates[0].ID != "a" {
		t.Errorf("FetchCandidates() = %v, want the one collected candidate", candidates)
	}
}

func TestFetchCandidatesTerminatesOnDuplicateOnlyPages(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Same outlet forever, total_pages never reported
		fmt.Fprintf(w, `{"outlets": [%s], "page": 1, "total_pages": 0}`, outletJSON("a", -6.21, 106.85))
	}))
	defer server.Close()

	candidates, partial, err := testClient(server.URL).FetchCandidates(context.Background(), origin, 5, 0)
	if err != nil {
		t.Fatalf("FetchCandidates() error = %v", err)
	}
	if partial {
		t.Error("FetchCandidates() partial = true, want false")
	}
	if len(candidates) != 1 {
		t.Errorf("FetchCandidates() returned %d candidates, want 1", len(candidates))
	}
	// MaxCandidates 10 / PageSize 2 bounds the loop at 6 pages
	if got := calls.Load(); got > 6 {
		t.Errorf("server saw %d calls, want at most 6", got)
	}
}

func TestFetchCandidatesBreakerOpensAtConfiguredThreshold(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(&config.GofoodConfig{
		BaseURL:          server.URL,
		PageSize:         2,
		MaxCandidates:    10,
		MaxRetries:       5,
		RetryBackoff:     time.Millisecond,
		MaxBackoff:       5 * time.Millisecond,
		Timeout:          2 * time.Second,
		MaxConns:         2,
		BreakerThreshold: 2,
		BreakerTimeout:   time.Minute,
	}, NewSession(""))

	_, _, err := client.FetchCandidates(context.Background(), origin, 5, 0)
	if !model.IsCode(err, model.CodeUpstreamUnavailable) {
		t.Errorf("FetchCandidates() error code = %s, want %s", model.ErrorCode(err), model.CodeUpstreamUnavailable)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2 before the breaker opened", got)
	}
}

func TestSessionRotate(t *testing.T) {
	s := NewSession("session=old")
	if s.Cookie() != "session=old" {
		t.Errorf("Cookie() = %q", s.Cookie())
	}
	s.Rotate("session=new")
	if s.Cookie() != "session=new" {
		t.Errorf("Cookie() after Rotate = %q", s.Cookie())
	}
}
