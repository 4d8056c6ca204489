package entropy

import (
	"fmt"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"math"
)

// DefaultCurrentGPS is the throughput of the fastest publicly known
// cracking rig, about 2.7 trillion guesses per second as of March 2024.
const DefaultCurrentGPS = 2.7e12

// Seconds in a 365 day year. Leap days do not matter at these scales.
const secondsPerYear = 31536000

const (
	foreverLabel = "∞ years"
	instantLabel = "less than a second"
)

// Rate is a single guessing scenario: attacker throughput in guesses per
// second plus the label reports display for it.
type Rate struct {
	GPS   float64
	Label string
}

// DefaultRates returns the scenarios every report runs, slowest first: an
// online throttled attack, an online unthrottled attack, a single GPU
// rig, a large cluster, and the current top known rig.
func DefaultRates(currentGPS float64) []Rate {
	p := message.NewPrinter(language.English)
	speeds := []float64{10000, 5000000, 250000000000, 1000000000000, currentGPS}
	rates := make([]Rate, 0, len(speeds))
	for _, gps := range speeds {
		rates = append(rates, Rate{GPS: gps, Label: p.Sprintf("%d/s", int64(gps))})
	}
	return rates
}

type magnitude struct {
	threshold float64
	label     string
}

// Year scale buckets, scanned high to low; the first threshold the value
// reaches wins. Anything past 10^18 years is reported as forever, which
// also absorbs the +Inf produced when pool^length overflows float64.
var yearMagnitudes = []magnitude{
	{1e18, foreverLabel},
	{1e15, "quintillion years"},
	{1e12, "trillion years"},
	{1e9, "billion years"},
	{1e6, "million years"},
	{1e4, "thousand years"},
	{1, "years"},
}

// Buckets for crack times under a year, same scan order. Values below the
// last threshold (roughly 31 seconds) have no bucket at all.
var subYearMagnitudes = []magnitude{
	{0.1, "months"},
	{0.01, "days"},
	{0.001, "hours"},
	{0.0001, "minutes"},
	{0.00001, "seconds"},
	{0.000001, instantLabel},
}

// Estimate is the projected crack time for one guessing scenario.
// BelowResolution marks year values too small for even the coarsest
// bucket; those carry no label and are dropped from reports.
type Estimate struct {
	Rate            Rate
	Label           string
	BelowResolution bool
}

// RateLabel is one printable report row.
type RateLabel struct {
	Rate  string
	Label string
}

// CrackTimes projects the worst case brute force time of the search space
// pool^length against each scenario, in scenario order.
func CrackTimes(poolSize, length int, rates []Rate) ([]Estimate, error) {
	if poolSize <= 0 || length <= 0 {
		return nil, fmt.Errorf("%w: pool %d, length %d", ErrInvalidInput, poolSize, length)
	}

	space := math.Pow(float64(poolSize), float64(length))
	estimates := make([]Estimate, 0, len(rates))
	for _, rate := range rates {
		years := space / rate.GPS / secondsPerYear
		estimates = append(estimates, estimateYears(rate, years))
	}
	return estimates, nil
}

func estimateYears(rate Rate, years float64) Estimate {
	if years >= 1 {
		for _, m := range yearMagnitudes {
			if years >= m.threshold {
				if m.label == foreverLabel {
					return Estimate{Rate: rate, Label: foreverLabel}
				}
				return Estimate{Rate: rate, Label: fmt.Sprintf("%.2f %s", years/m.threshold, m.label)}
			}
		}
	}

	for _, m := range subYearMagnitudes {
		if years >= m.threshold {
			if m.label == instantLabel {
				return Estimate{Rate: rate, Label: instantLabel}
			}
			return Estimate{Rate: rate, Label: fmt.Sprintf("%.2f %s", years/m.threshold, m.label)}
		}
	}

	// 0 <= years < 1e-6 reaches no bucket.
	return Estimate{Rate: rate, BelowResolution: true}
}

// Labels flattens estimates into report rows, dropping scenarios below
// the resolution of the magnitude tables.
func Labels(estimates []Estimate) []RateLabel {
	rows := make([]RateLabel, 0, len(estimates))
	for _, e := range estimates {
		if e.BelowResolution {
			continue
		}
		rows = append(rows, RateLabel{Rate: e.Rate.Label, Label: e.Label})
	}
	return rows
}

// The horizon target is a rig able to cover the whole search space within
// one hour.
const mooreBudget = 3600 * 3600

// MooreHorizon estimates how many years of yearly rate doubling are
// needed before the search space can be brute forced in under an hour.
// Computed in log space so large pools cannot overflow float64.
func MooreHorizon(poolSize, length int, currentGPS float64) (string, error) {
	if poolSize <= 0 || length <= 0 || currentGPS <= 0 {
		return "", fmt.Errorf("%w: pool %d, length %d, gps %g", ErrInvalidInput, poolSize, length, currentGPS)
	}

	years := float64(length)*math.Log2(float64(poolSize)) - math.Log2(mooreBudget) - math.Log2(currentGPS)
	return mooreLabel(years), nil
}

func mooreLabel(years float64) string {
	if years < 0 {
		return "Can already be cracked in less than an hour"
	}
	if years > 0 && years <= 1 {
		return "1 year or less"
	}
	return fmt.Sprintf("%.2f years", years)
}
