// Copyright (c) 2022. Alvin Baena.
// SPDX-License-Identifier: MIT

package hibp

import (
	"context"
	"errors"
	"fmt"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// Seconds to wait before retrying after a connection failure.
	connectionRetryWait = 5
	// Seconds to wait before retrying after the server answered with a
	// non success status.
	badStatusRetryWait = 10

	defaultTimeout = 2 * time.Second
	userAgent      = "golang-entropass/1.0"
)

// ErrRetryBudgetExhausted is returned once a bounded Fetcher has used up
// all of its attempts without a terminal response.
var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

// The fetch loop is a small state machine. A terminal response (2xx, or
// 404 for an empty hash range) leaves it; every other outcome moves
// through one of the wait states and back to attempting.
type fetchState int

const (
	stateAttempting fetchState = iota
	stateConnectionFailed
	stateBadStatus
)

// Fetcher wraps GET requests with the retry behavior a flaky network
// needs. A maxAttempts of 0 retries forever, which is what interactive
// runs want; servers should set a budget.
type Fetcher struct {
	client      *http.Client
	clock       clock.Clock
	maxAttempts int
}

func NewFetcher(clk clock.Clock, timeout time.Duration, maxAttempts int) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		clock:       clk,
		maxAttempts: maxAttempts,
	}
}

// Get requests rawURL with the optional query parameters and retries
// until a terminal response arrives or the context is canceled. A
// bounded fetcher also gives up once its attempts run out. The caller
// owns the response body.
func (f *Fetcher) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		q := u.Query()
		for key, values := range params {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		u.RawQuery = q.Encode()
	}
	target := u.String()

	state := stateAttempting
	attempts := 0
	var lastErr error

	for {
		switch state {
		case stateAttempting:
			attempts++

			res, err := f.attempt(ctx, target)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				lastErr = err
				state = stateConnectionFailed
				continue
			}

			if res.StatusCode == http.StatusNotFound || (res.StatusCode >= 200 && res.StatusCode < 300) {
				return res, nil
			}

			lastErr = fmt.Errorf("request [%s] failed with status [%d] %s", target, res.StatusCode, res.Status)
			discardBody(res)
			state = stateBadStatus

		case stateConnectionFailed:
			if f.exhausted(attempts) {
				return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryBudgetExhausted, attempts, lastErr)
			}
			log.Warn().Err(lastErr).Msgf("connection error, retrying in %d seconds", connectionRetryWait)
			if err = f.countdown(ctx, connectionRetryWait); err != nil {
				return nil, err
			}
			state = stateAttempting

		case stateBadStatus:
			if f.exhausted(attempts) {
				return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryBudgetExhausted, attempts, lastErr)
			}
			log.Warn().Msgf("%s, retrying in %d seconds", lastErr, badStatusRetryWait)
			if err = f.countdown(ctx, badStatusRetryWait); err != nil {
				return nil, err
			}
			state = stateAttempting
		}
	}
}

func (f *Fetcher) attempt(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	// This user agent string is identifying enough, I think...
	req.Header.Set("User-Agent", userAgent)
	return f.client.Do(req)
}

func (f *Fetcher) exhausted(attempts int) bool {
	return f.maxAttempts > 0 && attempts >= f.maxAttempts
}

// countdown sleeps one second at a time so cancellation is honored
// between ticks and the remaining wait shows up in the logs.
func (f *Fetcher) countdown(ctx context.Context, seconds int) error {
	for i := seconds; i > 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info().Msgf("waiting... (%d)", i)
		f.clock.Sleep(time.Second)
	}
	return ctx.Err()
}

// discardBody drains and closes a response that will not be used, so the
// connection can be reused by the next attempt.
func discardBody(res *http.Response) {
	if res.Body == nil {
		return
	}
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		log.Warn().Err(err).Msg("error draining response body")
	}
	if err := res.Body.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing response body")
	}
}
