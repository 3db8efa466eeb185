package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"slip-swap/config"
	"slip-swap/pkg/oneinch"
	"slip-swap/pkg/splitswap"
	"slip-swap/pkg/wallet"
	"slip-swap/pkg/watcher"
)

var (
	swapParts   int
	waitConfirm bool
	noConfirm   bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Execute a swap split into multiple parts",
	Long: `Split one swap into several smaller sequential sub-trades and execute them
through the 1inch aggregator. Each part is signed by your connected wallet.

IMPORTANT:
  - A wallet session must be configured (wallet_topic and wallet_address)
  - The token allowance is checked and an approval is requested if needed
  - Press Ctrl+C to cancel between parts; parts already sent keep running

Examples:
  # Split 2500 USDC into 3 parts
  slip-swap swap 2500 USDC to WETH --parts 3

  # Wait for each part to confirm before sending the next
  slip-swap swap 2500 USDC to WETH --parts 3 --wait

  # Skip the confirmation prompt
  slip-swap swap 10 WETH to USDC --parts 2 --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().IntVar(&swapParts, "parts", 1, "Number of parts to split the swap into")
	swapCmd.Flags().BoolVar(&waitConfirm, "wait", false, "Wait for on-chain confirmation of each part")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	from, to, total, err := resolveSwapArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if cfg.WalletTopic == "" || cfg.WalletAddress == "" {
		printError(fmt.Errorf("wallet not connected. Set SLIPSWAP_WALLET_TOPIC and SLIPSWAP_WALLET_ADDRESS (or wallet_topic and wallet_address in .slip-swap.yaml) to your settled wallet session"))
		os.Exit(1)
	}

	if !noConfirm && !jsonOutput {
		fmt.Printf("\nSwapping %s %s -> %s in %s part(s)\n",
			total, color.YellowString(from.Symbol), color.YellowString(to.Symbol), color.CyanString("%d", swapParts))
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	sessions := wallet.NewSessionStore()
	sessions.Settle(wallet.Session{
		Topic:   cfg.WalletTopic,
		Address: cfg.WalletAddress,
		Chains:  []string{fmt.Sprintf("eip155:%d", cfg.ChainID)},
	})

	ctx := context.Background()

	relay, err := wallet.DialRelay(ctx, cfg.RelayURL, logger)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer relay.Close()

	channel := wallet.NewChannel(sessions, relay, cfg.ChainID,
		wallet.WithDelegatedGas(),
		wallet.WithLogger(logger),
	)
	relay.OnResponse(channel.HandleResponse)

	aggregator := oneinch.NewClient(cfg.AggregatorURL, cfg.OneInchAPIKey, cfg.ChainID)
	confirmations := watcher.New(cfg.ScanAPIURL, cfg.ScanAPIKey,
		watcher.WithInterval(cfg.PollInterval),
		watcher.WithMaxAttempts(cfg.MaxPollAttempts),
		watcher.WithLogger(logger),
	)

	exec := splitswap.NewExecutor(aggregator, aggregator, channel, confirmations, sessions, splitswap.Config{
		SlippageBps:         cfg.SlippageBps,
		WaitForConfirmation: waitConfirm || cfg.WaitForConfirmation,
		PartDelay:           cfg.PartDelay,
		PartDelayFloor:      splitswap.DefaultPartDelayFloor,
	}, logger)

	// Ctrl+C requests a cooperative cancel; the part in flight still finishes.
	var cancelled atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancelled.Store(true)
		fmt.Println("\nCancellation requested, finishing the current part...")
	}()

	req := splitswap.Request{
		From:         from,
		To:           to,
		TotalAmount:  total,
		Parts:        swapParts,
		ShouldCancel: cancelled.Load,
	}
	if !jsonOutput {
		req.Progress = func(done, totalParts int) {
			fmt.Printf("  Part %d/%d %s\n", done, totalParts, color.GreenString("sent"))
		}
	}

	res, err := exec.Execute(ctx, req)
	if err != nil {
		printError(err)
		os.Exit(exitCodeForWalletError(err))
	}

	if jsonOutput {
		output := map[string]interface{}{
			"tx_hashes":     res.Hashes,
			"parts":         swapParts,
			"cancelled":     res.Cancelled,
			"skipped_parts": res.SkippedParts,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displaySwapResult(res, swapParts)
}

func displaySwapResult(res *splitswap.Result, parts int) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	if res.Cancelled {
		color.Yellow("                SWAP PARTIALLY EXECUTED")
	} else {
		color.Green("                   SWAP SUBMITTED")
	}
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Parts executed: %d of %d\n", len(res.Hashes), parts)
	for i, hash := range res.Hashes {
		fmt.Printf("  Part %d Tx:  %s\n", i+1, color.CyanString(hash))
	}

	for _, idx := range res.SkippedParts {
		color.Yellow("  Part %d skipped: no route for that amount", idx+1)
	}
	if res.Cancelled {
		color.Yellow("\n  Remaining parts were cancelled on request.")
	}

	fmt.Println("\nYou can check confirmation status using:")
	for _, hash := range res.Hashes {
		color.Cyan("  slip-swap status %s", hash)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// exitCodeForWalletError keeps rejection distinguishable from transport
// failures in scripts.
func exitCodeForWalletError(err error) int {
	if errors.Is(err, wallet.ErrWalletRejected) {
		return 2
	}
	return 1
}
