package mesh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchReportFromAPI_SuccessJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept"), "application/json") {
			t.Errorf("expected Accept to include application/json, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"beacons":[[1,2,3],[4,5,6]]}`))
	}))
	defer srv.Close()

	cloud, err := FetchReportFromAPI(context.Background(), srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("FetchReportFromAPI() error: %v", err)
	}
	if len(cloud) != 2 || cloud[1] != V3(4, 5, 6) {
		t.Errorf("cloud = %v, want [1,2,3 4,5,6]", cloud)
	}
}

func TestFetchReportFromAPI_SuccessText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("--- scanner 0 ---\n-1,-2,-3\n"))
	}))
	defer srv.Close()

	cloud, err := FetchReportFromAPI(context.Background(), srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("FetchReportFromAPI() error: %v", err)
	}
	if len(cloud) != 1 || cloud[0] != V3(-1, -2, -3) {
		t.Errorf("cloud = %v", cloud)
	}
}

func TestFetchReportFromAPI_EmptyURL(t *testing.T) {
	_, err := FetchReportFromAPI(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
	if !strings.Contains(err.Error(), "API URL is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFetchReportFromAPI_MalformedNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("1,2\n"))
	}))
	defer srv.Close()

	_, err := FetchReportFromAPI(context.Background(), srv.URL,
		WithHTTPClient(srv.Client()), WithMaxRetries(3), WithBaseBackoff(time.Millisecond))
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("error %v should match ErrMalformedInput", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestFetchReportFromAPI_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"beacons":[[7,8,9]]}`))
	}))
	defer srv.Close()

	cloud, err := FetchReportFromAPI(context.Background(), srv.URL,
		WithHTTPClient(srv.Client()), WithMaxRetries(3), WithBaseBackoff(time.Millisecond))
	if err != nil {
		t.Fatalf("FetchReportFromAPI() error: %v", err)
	}
	if len(cloud) != 1 || cloud[0] != V3(7, 8, 9) {
		t.Errorf("cloud = %v", cloud)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server called %d times, want 3", n)
	}
}

func TestFetchReportFromAPI_AllAttemptsFail(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := FetchReportFromAPI(context.Background(), srv.URL,
		WithHTTPClient(srv.Client()), WithMaxRetries(2), WithBaseBackoff(time.Millisecond))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "all 2 attempts failed") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error should carry the last status: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server called %d times, want 2", n)
	}
}

func TestFetchReportFromAPI_ZeroRetriesStillTriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, _ = FetchReportFromAPI(context.Background(), srv.URL, WithHTTPClient(srv.Client()), WithMaxRetries(0))
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestFetchReportFromAPI_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchReportFromAPI(ctx, srv.URL, WithHTTPClient(srv.Client()), WithMaxRetries(5))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestFetchReportFromAPI_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := FetchReportFromAPI(context.Background(), srv.URL,
		WithTimeout(50*time.Millisecond), WithMaxRetries(1))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("fetch took %v, want it bounded by the timeout", elapsed)
	}
}
