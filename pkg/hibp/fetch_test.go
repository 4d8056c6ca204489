// Copyright (c) 2022. Alvin Baena.
// SPDX-License-Identifier: MIT

package hibp

import (
	"context"
	"errors"
	"github.com/benbjohnson/clock"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

type fetchResult struct {
	res *http.Response
	err error
}

// startFetch runs Get on its own goroutine so the test can drive the mock
// clock through the retry countdowns.
func startFetch(ctx context.Context, f *Fetcher, target string) <-chan fetchResult {
	done := make(chan fetchResult, 1)
	go func() {
		res, err := f.Get(ctx, target, nil)
		done <- fetchResult{res: res, err: err}
	}()
	return done
}

func waitForFetch(t *testing.T, mock *clock.Mock, done <-chan fetchResult) fetchResult {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case r := <-done:
			return r
		case <-deadline:
			t.Fatal("fetch did not finish")
			return fetchResult{}
		default:
			mock.Add(time.Second)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestFetcherRetriesConnectionErrors(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) <= 2 {
			// Kill the connection without an answer so the client sees a
			// transport error, not a status.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("server does not support hijacking")
				return
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Errorf("hijack should not fail: %s", err)
				return
			}
			_ = conn.Close()
			return
		}
		_, _ = w.Write([]byte("OK"))
	}))
	defer server.Close()

	mock := clock.NewMock()
	f := NewFetcher(mock, time.Second, 0)

	done := startFetch(context.Background(), f, server.URL)
	r := waitForFetch(t, mock, done)

	if r.err != nil {
		t.Fatalf("Get should not fail: %s", r.err)
	}
	_ = r.res.Body.Close()
	if r.res.StatusCode != http.StatusOK {
		t.Errorf("status: %d, want: %d", r.res.StatusCode, http.StatusOK)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("requests: %d, want: 3", got)
	}
}

func TestFetcherRetriesBadStatus(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("OK"))
	}))
	defer server.Close()

	mock := clock.NewMock()
	f := NewFetcher(mock, time.Second, 0)

	done := startFetch(context.Background(), f, server.URL)
	r := waitForFetch(t, mock, done)

	if r.err != nil {
		t.Fatalf("Get should not fail: %s", r.err)
	}
	_ = r.res.Body.Close()
	if r.res.StatusCode != http.StatusOK {
		t.Errorf("status: %d, want: %d", r.res.StatusCode, http.StatusOK)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("requests: %d, want: 3", got)
	}
}

func TestFetcherNotFoundIsTerminal(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	// No clock driving needed, the terminal path never sleeps.
	f := NewFetcher(clock.NewMock(), time.Second, 0)
	res, err := f.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Get should not fail: %s", err)
	}
	_ = res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Errorf("status: %d, want: %d", res.StatusCode, http.StatusNotFound)
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests: %d, want: 1", got)
	}
}

func TestFetcherRetryBudget(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	mock := clock.NewMock()
	f := NewFetcher(mock, time.Second, 3)

	done := startFetch(context.Background(), f, server.URL)
	r := waitForFetch(t, mock, done)

	if !errors.Is(r.err, ErrRetryBudgetExhausted) {
		t.Fatalf("Get should return ErrRetryBudgetExhausted, got: %v", r.err)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("requests: %d, want: 3", got)
	}
}

func TestFetcherContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	mock := clock.NewMock()
	f := NewFetcher(mock, time.Second, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := startFetch(ctx, f, server.URL)
	cancel()

	r := waitForFetch(t, mock, done)
	if !errors.Is(r.err, context.Canceled) {
		t.Fatalf("Get should return context.Canceled, got: %v", r.err)
	}
}

func TestFetcherQueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("mode"); got != "ntlm" {
			t.Errorf("mode param: %s, want: ntlm", got)
		}
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("user agent: %s, want: %s", got, userAgent)
		}
		_, _ = w.Write([]byte("OK"))
	}))
	defer server.Close()

	f := NewFetcher(clock.NewMock(), time.Second, 1)
	res, err := f.Get(context.Background(), server.URL, url.Values{"mode": []string{"ntlm"}})
	if err != nil {
		t.Fatalf("Get should not fail: %s", err)
	}
	_ = res.Body.Close()
}

func TestFetcherBadURL(t *testing.T) {
	f := NewFetcher(clock.NewMock(), time.Second, 0)
	if _, err := f.Get(context.Background(), "://no-scheme", nil); err == nil {
		t.Errorf("Get should fail on an unparsable URL")
	}
}
