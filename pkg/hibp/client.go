// Copyright (c) 2022. Alvin Baena.
// SPDX-License-Identifier: MIT

package hibp

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// DefaultBaseURL is the k-anonymity range endpoint of the Pwned Passwords
// API.
const DefaultBaseURL = "https://api.pwnedpasswords.com/range/"

var (
	ErrInvalidHash   = errors.New("input is not a valid SHA1 Hexadecimal hash")
	ErrInvalidPrefix = errors.New("range prefix must be 5 hexadecimal characters")

	hashPattern   = regexp.MustCompile(`^[a-fA-F\d]{40}$`)
	prefixPattern = regexp.MustCompile(`^[a-fA-F\d]{5}$`)
)

// Suffix is one line of a range response: the last 35 characters of a
// breached SHA1 hash plus the number of breaches it was seen in.
type Suffix struct {
	Suffix string
	Count  int64
}

// BreachResult reports whether a password appears in the Pwned Passwords
// corpus and in how many breaches.
type BreachResult struct {
	Found bool
	Count int64
}

// Client queries the Pwned Passwords range API. Only the first 5
// characters of a hash ever go over the wire; matching against the rest
// happens locally.
type Client struct {
	fetcher *Fetcher
	baseURL string
}

func NewClient(fetcher *Fetcher, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{fetcher: fetcher, baseURL: baseURL}
}

// Range downloads and parses the hash range for a 5 character prefix. A
// nil slice means no breached hash shares the prefix. Malformed response
// lines are skipped, not fatal.
func (c *Client) Range(ctx context.Context, prefix string) ([]Suffix, error) {
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}

	res, err := c.fetcher.Get(ctx, c.baseURL+strings.ToUpper(prefix), nil)
	if err != nil {
		return nil, err
	}
	defer func(body io.ReadCloser) {
		if err = body.Close(); err != nil {
			log.Warn().Err(err).Msgf("error closing body for range %s", prefix)
		}
	}(res.Body)

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var suffixes []Suffix
	scanner := bufio.NewScanner(res.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		suffix, count, ok := strings.Cut(line, ":")
		if !ok {
			log.Debug().Msgf("skipping malformed line in range %s", prefix)
			continue
		}

		n, err := strconv.ParseInt(strings.TrimSpace(count), 10, 64)
		if err != nil {
			log.Debug().Msgf("skipping line with bad count in range %s", prefix)
			continue
		}

		suffixes = append(suffixes, Suffix{Suffix: strings.ToUpper(suffix), Count: n})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return suffixes, nil
}

// CheckPassword hashes the plain text password and looks it up.
func (c *Client) CheckPassword(ctx context.Context, password string) (BreachResult, error) {
	h := sha1.New()
	h.Write([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
	return c.checkDigest(ctx, digest)
}

// CheckHash looks up an already hashed password. The hash must be a full
// 40 character SHA1 hex digest, upper or lower case.
func (c *Client) CheckHash(ctx context.Context, hash string) (BreachResult, error) {
	if !hashPattern.MatchString(hash) {
		return BreachResult{}, ErrInvalidHash
	}
	return c.checkDigest(ctx, strings.ToUpper(hash))
}

func (c *Client) checkDigest(ctx context.Context, digest string) (BreachResult, error) {
	suffixes, err := c.Range(ctx, digest[:5])
	if err != nil {
		return BreachResult{}, err
	}

	rest := digest[5:]
	for _, s := range suffixes {
		if s.Suffix == rest {
			return BreachResult{Found: true, Count: s.Count}, nil
		}
	}

	return BreachResult{}, nil
}
