// Copyright (c) 2022. Alvin Baena.
// SPDX-License-Identifier: MIT

package cli

import (
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "entropass [COMMAND] [OPTIONS]",
		Short: "Estimate password strength and check for breaches",
		Long: "Estimate the entropy, realistic cracking times, and breach exposure of a password. " +
			"Breach checks query the Pwned Passwords (haveibeenpwned.com) range API, which only " +
			"ever sees the first 5 characters of the password hash",
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print more information on the processing")
	rootCmd.PersistentFlags().BoolVar(&profile, "profile", false, "Enable the profiling server (pprof) when running commands")
	rootCmd.PersistentFlags().Uint16Var(&pprofPort, "profile-port", 6060, "The port to use for the pprof server. Only used if the profile flag is set")
}

func Execute() error {
	return rootCmd.Execute()
}
