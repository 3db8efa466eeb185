package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// logger is shared by every subcommand, configured in the pre-run from the
// --verbose flag.
var logger zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "slip-swap",
	Short: "A CLI for splitting large swaps into smaller parts via the 1inch aggregator",
	Long: `slip-swap is a command-line tool that reduces price impact on large ERC-20
swaps by splitting one trade into several smaller sequential sub-trades routed
through the 1inch aggregator. Transactions are signed by your own wallet over
a wallet-connection session; this tool never holds keys.

Examples:
  slip-swap simulate 2500 USDC to WETH
  slip-swap swap 2500 USDC to WETH --parts 3
  slip-swap allowance USDC
  slip-swap balance USDC
  slip-swap status 0xabc...def --wait
  slip-swap list-tokens`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
