package cli

import (
	"context"
	"entropass/internal/util"
	"entropass/pkg/entropy"
	"entropass/pkg/hibp"
	"errors"
	"fmt"
	"github.com/benbjohnson/clock"
	"github.com/manifoldco/promptui"
	"github.com/nbutton23/zxcvbn-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
)

var (
	checkCmd = &cobra.Command{
		Use:   "check [PASSWORD]",
		Short: "Estimate the strength of a password and look it up in known breaches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hashed && offline {
				return errors.New("the offline flag disables breach lookups, nothing to do for a hash")
			}
			if interactive {
				return checkInteractive()
			}
			if len(args) == 0 {
				return checkPrompted()
			}
			return checkCommand(args[0])
		},
	}
)

func init() {
	checkCmd.Flags().BoolVarP(&interactive, "interactive", "n", false, "Interactive mode.")
	checkCmd.Flags().BoolVarP(&hashed, "hashed", "s", false, "If the supplied password will be a Hexadecimal SHA1 hash or a plain text string.")
	checkCmd.Flags().BoolVar(&offline, "offline", false, "Skip the haveibeenpwned.com breach lookup.")
	checkCmd.Flags().Float64Var(&gps, "gps", entropy.DefaultCurrentGPS, "Guesses per second of the best cracking rig to project against.")
	checkCmd.Flags().DurationVar(&fetchTimeout, "timeout", 0, "Per request timeout for the breach lookup. Defaults to 2s.")
	checkCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Maximum breach lookup attempts. 0 retries until interrupted.")

	rootCmd.AddCommand(checkCmd)
}

// report is everything the command prints for one password shape.
type report struct {
	bits     float64
	strength entropy.Strength
	rows     []entropy.RateLabel
	horizon  string
}

func buildReport(poolSize, length int) (*report, error) {
	bits, err := entropy.Bits(poolSize, length)
	if err != nil {
		return nil, err
	}

	estimates, err := entropy.CrackTimes(poolSize, length, entropy.DefaultRates(gps))
	if err != nil {
		return nil, err
	}

	horizon, err := entropy.MooreHorizon(poolSize, length, gps)
	if err != nil {
		return nil, err
	}

	return &report{
		bits:     bits,
		strength: entropy.Classify(bits),
		rows:     entropy.Labels(estimates),
		horizon:  horizon,
	}, nil
}

func checkCommand(password string) error {
	util.ApplyCliSettings(verbose, profile, pprofPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := breachClient()
	if hashed {
		return checkHashed(ctx, client, password)
	}
	return runCheck(ctx, client, password)
}

func runCheck(ctx context.Context, client *hibp.Client, password string) error {
	pool, length := entropy.ScanPassword(password)
	r, err := buildReport(pool.Size(), length)
	if err != nil {
		return err
	}

	fmt.Printf("\nEntropy: %.2f bits - Use Case: %s account password\n", r.bits, r.strength)

	if !offline {
		reportBreaches(ctx, client, password)
	}

	printCrackTimes(r)

	if verbose {
		// Second opinion from the pattern based estimator.
		match := zxcvbn.PasswordStrength(password, nil)
		fmt.Printf("\nPattern based estimate: score %d/4, crackable in %s\n", match.Score, match.CrackTimeDisplay)
	}
	return nil
}

// Column width for the crack time table.
const reportColumnWidth = 25

func printCrackTimes(r *report) {
	fmt.Println("\nWorst case (for hacker) to crack your password at various guesses per second.")
	for _, row := range r.rows {
		fmt.Printf("%-*s %-*s\n", reportColumnWidth, row.Rate, reportColumnWidth, row.Label)
	}

	fmt.Println("\nMoore's law method: How many years until a rig can generate enough guesses per\nsecond to crack the password in one hour.")
	fmt.Println(r.horizon)
}

// reportBreaches warns when the password shows up in the Pwned Passwords
// corpus. Lookup failures only skip the warning, the rest of the report
// still prints.
func reportBreaches(ctx context.Context, client *hibp.Client, password string) {
	result, err := client.CheckPassword(ctx, password)
	if err != nil {
		log.Warn().Err(err).Msg("could not complete the breach lookup, skipping it")
		return
	}

	if result.Found {
		p := message.NewPrinter(language.English)
		fmt.Printf("\nWARNING: this password is listed in the haveibeenpwned.com database from %s breaches!\n", p.Sprintf("%d", result.Count))
	}
}

func checkHashed(ctx context.Context, client *hibp.Client, hash string) error {
	result, err := client.CheckHash(ctx, hash)
	if err != nil {
		return err
	}

	if result.Found {
		p := message.NewPrinter(language.English)
		log.Info().Msgf("Hash is present in %s known breaches", p.Sprintf("%d", result.Count))
	} else {
		log.Info().Msgf("Hash is not present in any known breach")
	}
	return nil
}

func breachClient() *hibp.Client {
	return hibp.NewClient(hibp.NewFetcher(clock.New(), fetchTimeout, maxAttempts), "")
}

// checkPrompted asks for the password shape instead of the password, so
// nothing secret is ever typed in the clear. Without the literal password
// the breach lookup is skipped.
func checkPrompted() error {
	util.ApplyCliSettings(verbose, profile, pprofPort)

	lengthPrompt := promptui.Prompt{
		Label: "Password Length",
		Validate: func(input string) error {
			if n, err := strconv.Atoi(input); err != nil || n <= 0 {
				return errors.New("please enter a positive number")
			}
			return nil
		},
	}

	lengthInput, err := lengthPrompt.Run()
	if err != nil {
		return promptExit(err)
	}
	length, err := strconv.Atoi(lengthInput)
	if err != nil {
		return err
	}

	var pool entropy.Pool
	if pool.Lower, err = confirm("Include Lowercase"); err != nil {
		return promptExit(err)
	}
	if pool.Upper, err = confirm("Include Uppercase"); err != nil {
		return promptExit(err)
	}
	if pool.Digit, err = confirm("Include Digits"); err != nil {
		return promptExit(err)
	}
	if pool.Symbol, err = confirm("Include Symbols"); err != nil {
		return promptExit(err)
	}

	r, err := buildReport(pool.Size(), length)
	if err != nil {
		return err
	}

	fmt.Printf("\nEntropy: %.2f bits - Use Case: %s account password\n", r.bits, r.strength)
	printCrackTimes(r)
	return nil
}

func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label: label + " (y/n)",
		Validate: func(input string) error {
			switch strings.ToLower(input) {
			case "y", "n":
				return nil
			}
			return errors.New("please answer y or n")
		},
	}

	result, err := prompt.Run()
	if err != nil {
		return false, err
	}
	return strings.EqualFold(result, "y"), nil
}

func promptExit(err error) error {
	if err.Error() == "^C" || err.Error() == "^D" {
		log.Info().Msgf("Goodbye")
		// No return to avoid the default cobra error message
		return nil
	}
	return err
}

func checkInteractive() error {
	util.ApplyCliSettings(verbose, profile, pprofPort)
	s := util.Stats()
	defer s()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var label string
	if hashed {
		label = "SHA1 Hex hash"
	} else {
		label = "Password"
	}

	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if len(input) == 0 {
				return errors.New("please enter a valid password")
			}
			if hashed {
				if match, _ := regexp.MatchString("^[a-fA-F\\d]{40}$", input); !match {
					return errors.New("input is not a valid SHA1 Hexadecimal hash")
				}
			}
			return nil
		},
	}

	if !hashed {
		prompt.Mask = '*'
	} else {
		log.Info().Msgf("Flag 'hashed' is set. Please use SHA1 Hashed passwords.")
	}

	client := breachClient()

	log.Info().Msgf("Running interactive session. ^C to exit")
	if err := runInteractiveSession(ctx, prompt, client); err != nil {
		if err.Error() == "^C" || err.Error() == "^D" {
			log.Info().Msgf("Goodbye")
		} else {
			log.Error().Err(err).Msgf("Error during interactive session")
		}
		// No return to avoid the default cobra error message
		return nil
	}

	return nil
}

func runInteractiveSession(ctx context.Context, prompt promptui.Prompt, client *hibp.Client) error {
	for {
		result, err := prompt.Run()
		if err != nil {
			return err
		}

		if hashed {
			if err = checkHashed(ctx, client, result); err != nil {
				log.Error().Err(err).Msg("Error during breach lookup")
			}
			continue
		}

		if err = runCheck(ctx, client, result); err != nil {
			log.Error().Err(err).Msg("Error processing input")
		}
	}
}
