package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"slip-swap/config"
	"slip-swap/pkg/watcher"
)

var waitForStatus bool

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the confirmation status of a transaction",
	Long: `Check whether a submitted transaction has been confirmed, using the block
explorer's receipt-status API. With --wait, keep polling until it confirms or
the polling window runs out.

Examples:
  slip-swap status 0x1234...abcd
  slip-swap status 0x1234...abcd --wait`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&waitForStatus, "wait", "w", false, "Poll until the transaction confirms")
}

func runStatus(cmd *cobra.Command, args []string) {
	txHash := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	confirmations := watcher.New(cfg.ScanAPIURL, cfg.ScanAPIKey,
		watcher.WithInterval(cfg.PollInterval),
		watcher.WithMaxAttempts(cfg.MaxPollAttempts),
		watcher.WithLogger(logger),
	)
	ctx := context.Background()

	if waitForStatus {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !jsonOutput {
			s.Suffix = " Waiting for confirmation..."
			s.Start()
		}

		err = confirmations.Await(ctx, txHash)
		if !jsonOutput {
			s.Stop()
		}

		switch {
		case errors.Is(err, watcher.ErrConfirmationTimeout):
			printStatus(txHash, false, jsonOutput)
			os.Exit(1)
		case err != nil:
			printError(err)
			os.Exit(1)
		}
		printStatus(txHash, true, jsonOutput)
		return
	}

	confirmed, err := confirmations.Check(ctx, txHash)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	printStatus(txHash, confirmed, jsonOutput)
}

func printStatus(txHash string, confirmed bool, jsonOutput bool) {
	if jsonOutput {
		output := map[string]interface{}{
			"tx_hash":   txHash,
			"confirmed": confirmed,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Printf("\n  Tx:     %s\n", color.CyanString(txHash))
	if confirmed {
		fmt.Printf("  Status: %s\n\n", color.GreenString("CONFIRMED"))
	} else {
		fmt.Printf("  Status: %s\n\n", color.YellowString("PENDING"))
	}
}
