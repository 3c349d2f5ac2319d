package jsonbin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchBulletinSendsKeyAndRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Master-Key"); got != "secret" {
			t.Errorf("X-Master-Key = %q", got)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"record":{}}`))
	}))
	defer srv.Close()

	c := New(Options{BulletinURL: srv.URL, APIKey: "secret", MaxRetries: 2, InitialBackoff: time.Millisecond})
	body, err := c.FetchBulletin(context.Background())
	if err != nil {
		t.Fatalf("FetchBulletin() error = %v", err)
	}
	if string(body) != `{"record":{}}` {
		t.Fatalf("unexpected body %q", body)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestFetchStopsOnPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Options{PermURL: srv.URL, InitialBackoff: time.Millisecond})
	if _, err := c.FetchPermDocument(context.Background()); !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	cases := []struct {
		name       string
		maxRetries int
		wantCalls  int32
	}{
		{name: "no retries", maxRetries: 0, wantCalls: 1},
		{name: "negative clamps to no retries", maxRetries: -1, wantCalls: 1},
		{name: "two retries", maxRetries: 2, wantCalls: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer srv.Close()

			c := New(Options{BulletinURL: srv.URL, MaxRetries: tc.maxRetries, InitialBackoff: time.Millisecond})
			if _, err := c.FetchBulletin(context.Background()); err == nil {
				t.Fatal("expected error after retries")
			}
			if calls.Load() != tc.wantCalls {
				t.Fatalf("expected %d attempts, got %d", tc.wantCalls, calls.Load())
			}
		})
	}
}

func TestFetchHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(Options{BulletinURL: srv.URL, InitialBackoff: time.Hour})
	if _, err := c.FetchBulletin(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
