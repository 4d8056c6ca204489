// Copyright (c) 2022. Alvin Baena.
// SPDX-License-Identifier: MIT

package cli

import "time"

var (
	// root
	verbose bool
	// root
	profile bool
	// root
	pprofPort uint16
	// check
	interactive bool
	// check
	hashed bool
	// check
	offline bool
	// check
	gps float64
	// check
	fetchTimeout time.Duration
	// check
	maxAttempts int
)
