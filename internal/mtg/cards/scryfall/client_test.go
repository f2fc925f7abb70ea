package scryfall

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(serverURL string) *Client {
	return NewClient(
		WithBaseURL(serverURL),
		WithRateLimit(time.Millisecond),
		WithRetries(2, time.Millisecond),
	)
}

func TestNewClient(t *testing.T) {
	client := NewClient()

	if client.httpClient == nil {
		t.Error("httpClient is nil")
	}

	if client.rateLimiter == nil {
		t.Error("rateLimiter is nil")
	}

	if client.userAgent == "" {
		t.Error("userAgent is empty")
	}

	if client.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, DefaultBaseURL)
	}
}

func TestNewClient_Options(t *testing.T) {
	client := NewClient(
		WithBaseURL("http://localhost:1234"),
		WithUserAgent("deck-tool/2.0"),
		WithTimeout(5*time.Second),
		WithRetries(0, 10*time.Millisecond),
	)

	if client.baseURL != "http://localhost:1234" {
		t.Errorf("baseURL = %q", client.baseURL)
	}
	if client.UserAgent() != "deck-tool/2.0" {
		t.Errorf("UserAgent() = %q", client.UserAgent())
	}
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", client.httpClient.Timeout)
	}
	if client.maxRetries != 0 {
		t.Errorf("maxRetries = %d, want 0", client.maxRetries)
	}
}

func TestClient_RateLimiting(t *testing.T) {
	var requestCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"test","name":"Test Card"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(50*time.Millisecond))
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.GetCard(ctx, "test"); err != nil {
			t.Fatalf("Request %d failed: %v", i+1, err)
		}
	}
	elapsed := time.Since(start)

	if requestCount.Load() != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount.Load())
	}

	// 2 delays of 50ms between 3 requests
	if minDuration := 100 * time.Millisecond; elapsed < minDuration {
		t.Errorf("Rate limiting not working: completed 3 requests in %v (expected >= %v)", elapsed, minDuration)
	}
}

func TestClient_GetCardNamed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cards/named" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("exact"); got != "Fire // Ice" {
			t.Errorf("exact = %q", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "fire-ice", "name": "Fire // Ice", "layout": "split"}`))
	}))
	defer server.Close()

	card, err := testClient(server.URL).GetCardNamed(context.Background(), "Fire // Ice")
	if err != nil {
		t.Fatalf("GetCardNamed failed: %v", err)
	}
	if card.Name != "Fire // Ice" {
		t.Errorf("Expected card name 'Fire // Ice', got '%s'", card.Name)
	}
}

func TestClient_SearchCardsEncodesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != `!"Goblin" t:token` {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("unique") != "prints" {
			t.Errorf("unique = %q", q.Get("unique"))
		}
		_, _ = w.Write([]byte(`{"object": "list", "total_cards": 1, "has_more": false, "data": [{"id": "t1", "name": "Goblin"}]}`))
	}))
	defer server.Close()

	result, err := testClient(server.URL).SearchCards(context.Background(), `!"Goblin" t:token`, url.Values{"unique": {"prints"}})
	if err != nil {
		t.Fatalf("SearchCards failed: %v", err)
	}
	if len(result.Data) != 1 {
		t.Fatalf("Expected 1 card, got %d", len(result.Data))
	}
}

func TestClient_NotFoundError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"object":"error","code":"not_found","status":404,"details":"No card found"}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetCardNamed(context.Background(), "Nonexistent")
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if !IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","code":"bad_request","status":400,"details":"Invalid query"}`))
	}))
	defer server.Close()

	var card Card
	err := testClient(server.URL).doRequest(context.Background(), server.URL, &card)

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != 400 {
		t.Errorf("Status = %d, want 400", apiErr.Status)
	}
}

func TestClient_RetriesRateLimited(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"ok","name":"Island"}`))
	}))
	defer server.Close()

	card, err := testClient(server.URL).GetCard(context.Background(), "ok")
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if card.Name != "Island" {
		t.Errorf("Name = %q", card.Name)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetCard(context.Background(), "x")
	if err == nil {
		t.Fatal("Expected error after retries")
	}
	// One attempt plus two retries.
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(time.Millisecond), WithRetries(3, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.GetCard(ctx, "x")
	if err == nil {
		t.Fatal("Expected error from cancelled context")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff did not observe context cancellation")
	}
}

func TestClient_Download(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	client := testClient(server.URL)

	body, err := client.Download(context.Background(), server.URL+"/card.png")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer func() { _ = body.Close() }()

	_, err = client.Download(context.Background(), server.URL+"/missing.png")
	if !IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}
