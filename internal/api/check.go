// Copyright (c) 2022. Alvin Baena.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"entropass/pkg/entropy"
	"entropass/pkg/hibp"
	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/ristretto"
	"github.com/gin-gonic/gin"
	"github.com/nbutton23/zxcvbn-go"
	"net/http"
	"regexp"
	"strings"
	"time"
)

type checkApi struct {
	client  *hibp.Client
	cache   *ristretto.Cache
	rates   []entropy.Rate
	gps     float64
	offline bool
}

func (a *checkApi) checkPassword(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := a.strengthReport(req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := checkResponse{Strength: report}

	if !a.offline {
		h := sha1.New()
		h.Write([]byte(req.Password))
		digest := strings.ToUpper(hex.EncodeToString(h.Sum(nil)))

		result, err := a.lookup(c.Request.Context(), digest)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "breach lookup failed"})
			return
		}
		resp.Breach = &breachReport{Pwned: result.Found, Count: result.Count}
	}

	c.JSON(http.StatusOK, resp)
}

func (a *checkApi) checkHash(c *gin.Context) {
	var req hashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if match, _ := regexp.MatchString("^[a-fA-F\\d]{40}$", req.Hash); !match {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input is not a valid SHA1 Hexadecimal hash"})
		return
	}

	if a.offline {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "breach lookups are disabled"})
		return
	}

	result, err := a.lookup(c.Request.Context(), strings.ToUpper(req.Hash))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "breach lookup failed"})
		return
	}

	c.JSON(http.StatusOK, checkResponse{Breach: &breachReport{Pwned: result.Found, Count: result.Count}})
}

func (a *checkApi) strengthReport(password string) (*strengthReport, error) {
	pool, length := entropy.ScanPassword(password)
	bits, err := entropy.Bits(pool.Size(), length)
	if err != nil {
		return nil, err
	}

	estimates, err := entropy.CrackTimes(pool.Size(), length, a.rates)
	if err != nil {
		return nil, err
	}
	horizon, err := entropy.MooreHorizon(pool.Size(), length, a.gps)
	if err != nil {
		return nil, err
	}

	rows := entropy.Labels(estimates)
	entries := make([]crackTimeEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, crackTimeEntry{Rate: row.Rate, Label: row.Label})
	}

	// Second opinion from the pattern based estimator.
	score := zxcvbn.PasswordStrength(password, nil)

	return &strengthReport{
		EntropyBits:  bits,
		PoolSize:     pool.Size(),
		Length:       length,
		Strength:     entropy.Classify(bits).String(),
		Score:        score.Score,
		CrackTimes:   entries,
		MooreHorizon: horizon,
	}, nil
}

// lookup matches a full digest against its cached hash range. Only the 5
// character prefix is ever sent upstream.
func (a *checkApi) lookup(ctx context.Context, digest string) (hibp.BreachResult, error) {
	suffixes, err := a.rangeSuffixes(ctx, digest[:5])
	if err != nil {
		return hibp.BreachResult{}, err
	}

	rest := digest[5:]
	for _, s := range suffixes {
		if s.Suffix == rest {
			return hibp.BreachResult{Found: true, Count: s.Count}, nil
		}
	}

	return hibp.BreachResult{}, nil
}

func (a *checkApi) rangeSuffixes(ctx context.Context, prefix string) ([]hibp.Suffix, error) {
	if value, found := a.cache.Get(prefix); found {
		if suffixes, ok := value.([]hibp.Suffix); ok {
			return suffixes, nil
		}
	}

	suffixes, err := a.client.Range(ctx, prefix)
	if err != nil {
		return nil, err
	}

	// Cost is the range line count. Empty ranges still cost one slot so
	// negative results stay cached too.
	cost := int64(len(suffixes))
	if cost == 0 {
		cost = 1
	}
	a.cache.Set(prefix, suffixes, cost)

	return suffixes, nil
}

// RegisterCheckApi wires the strength and breach endpoints into the
// router group.
func RegisterCheckApi(group *gin.RouterGroup, cfg Config) error {
	cache, err := ristretto.NewCache(&ristretto.Config{
		// Number of keys to track frequency of, about 10x the items we
		// expect to hold.
		NumCounters: cfg.CacheMaxCost * 10,
		MaxCost:     cfg.CacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return err
	}

	fetcher := hibp.NewFetcher(clock.New(), time.Duration(cfg.FetchTimeout)*time.Second, cfg.MaxAttempts)
	a := &checkApi{
		client:  hibp.NewClient(fetcher, cfg.HibpURL),
		cache:   cache,
		rates:   entropy.DefaultRates(cfg.CurrentGPS),
		gps:     cfg.CurrentGPS,
		offline: cfg.Offline,
	}

	group.POST("/password", a.checkPassword)
	group.POST("/hash", a.checkHash)

	return nil
}
