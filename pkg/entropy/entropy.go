// Copyright (c) 2022. Alvin Baena.
// SPDX-License-Identifier: MIT

package entropy

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Symbols is the set of printable characters counted as the symbol class.
// Characters outside the four classes do not grow the pool.
const Symbols = "`~!@#$%^&*()-_=+[{]}\\|;:'\"/?,<.>"

// Pool size contributed by each character class.
const (
	LowerPoolSize  = 26
	UpperPoolSize  = 26
	DigitPoolSize  = 10
	SymbolPoolSize = 32
)

var ErrInvalidInput = errors.New("pool size and length must be greater than zero")

// Pool tracks which character classes appear in a password. A class
// contributes its full size to the search pool as soon as a single member
// of it is present.
type Pool struct {
	Lower  bool
	Upper  bool
	Digit  bool
	Symbol bool
}

func (p Pool) Size() int {
	size := 0
	if p.Lower {
		size += LowerPoolSize
	}
	if p.Upper {
		size += UpperPoolSize
	}
	if p.Digit {
		size += DigitPoolSize
	}
	if p.Symbol {
		size += SymbolPoolSize
	}
	return size
}

// ScanPassword classifies each character of the password and returns the
// resulting pool along with the password length in characters.
func ScanPassword(password string) (Pool, int) {
	var pool Pool
	length := 0
	for _, r := range password {
		length++
		switch {
		case r >= 'a' && r <= 'z':
			pool.Lower = true
		case r >= 'A' && r <= 'Z':
			pool.Upper = true
		case r >= '0' && r <= '9':
			pool.Digit = true
		case strings.ContainsRune(Symbols, r):
			pool.Symbol = true
		}
	}
	return pool, length
}

// Bits is the Shannon entropy of a brute force search over the pool:
// length * log2(poolSize).
func Bits(poolSize, length int) (float64, error) {
	if poolSize <= 0 || length <= 0 {
		return 0, fmt.Errorf("%w: pool %d, length %d", ErrInvalidInput, poolSize, length)
	}
	return float64(length) * math.Log2(float64(poolSize)), nil
}

// Strength buckets an entropy value into the account tier the password is
// good enough for.
type Strength int

const (
	Weak Strength = iota
	Normal
	Important
	Critical
)

func (s Strength) String() string {
	switch s {
	case Critical:
		return "Critical"
	case Important:
		return "Important"
	case Normal:
		return "Normal"
	default:
		return "Weak"
	}
}

// Checked high to low against the entropy rounded to the nearest integer
// bit.
var strengthLevels = []struct {
	bits  int
	level Strength
}{
	{100, Critical},
	{80, Important},
	{60, Normal},
	{0, Weak},
}

// Classify maps an entropy value to its strength tier. The value is
// rounded to the nearest bit first, so 59.54 bits already counts as
// Normal.
func Classify(bits float64) Strength {
	rounded := int(math.Round(bits))
	for _, l := range strengthLevels {
		if rounded >= l.bits {
			return l.level
		}
	}
	return Weak
}
