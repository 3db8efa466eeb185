package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"slip-swap/config"
	"slip-swap/pkg/amount"
	"slip-swap/pkg/oneinch"
	"slip-swap/pkg/parser"
	"slip-swap/pkg/tokens"
	"slip-swap/pkg/types"
	"slip-swap/pkg/wallet"
	"slip-swap/pkg/watcher"
)

var (
	approveAmount string
	approveMax    bool
)

var allowanceCmd = &cobra.Command{
	Use:   "allowance <token>",
	Short: "Check or grant the aggregator router's spending allowance",
	Long: `Check how much of a token the aggregator router may currently spend from
your wallet. With --approve or --approve-amount, request an approval through
the connected wallet and wait for it to confirm.

Examples:
  slip-swap allowance USDC
  slip-swap allowance USDC --approve
  slip-swap allowance USDC --approve-amount 5000`,
	Args: cobra.ExactArgs(1),
	Run:  runAllowance,
}

func init() {
	rootCmd.AddCommand(allowanceCmd)

	allowanceCmd.Flags().BoolVar(&approveMax, "approve", false, "Approve unlimited spending")
	allowanceCmd.Flags().StringVar(&approveAmount, "approve-amount", "", "Approve a specific token amount")
}

func runAllowance(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	token, err := tokens.Find(parser.NormalizeTokenSymbol(args[0]))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if token.IsNative() {
		printError(fmt.Errorf("%s is the native coin; it needs no allowance", token.Symbol))
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if cfg.WalletAddress == "" {
		printError(fmt.Errorf("wallet address not configured. Set SLIPSWAP_WALLET_ADDRESS or wallet_address in .slip-swap.yaml"))
		os.Exit(1)
	}

	aggregator := oneinch.NewClient(cfg.AggregatorURL, cfg.OneInchAPIKey, cfg.ChainID)
	ctx := context.Background()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking allowance..."
		s.Start()
	}

	current, err := aggregator.Allowance(ctx, token, cfg.WalletAddress)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var approvalHash string
	if approveMax || approveAmount != "" {
		approvalHash, err = requestApproval(ctx, cfg, aggregator, token)
		if err != nil {
			printError(err)
			os.Exit(exitCodeForWalletError(err))
		}
		current, err = aggregator.Allowance(ctx, token, cfg.WalletAddress)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	if jsonOutput {
		output := map[string]interface{}{
			"token":     token.Symbol,
			"wallet":    cfg.WalletAddress,
			"allowance": current.Dec(),
		}
		if approvalHash != "" {
			output["approval_tx"] = approvalHash
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Printf("\n  Token:     %s\n", color.YellowString(token.Symbol))
	fmt.Printf("  Wallet:    %s\n", color.CyanString(cfg.WalletAddress))
	if current.Eq(amount.MaxUint256()) {
		fmt.Printf("  Allowance: %s\n", color.GreenString("unlimited"))
	} else {
		fmt.Printf("  Allowance: %s %s\n", amount.FromBaseUnits(current, token.Decimals), token.Symbol)
	}
	if approvalHash != "" {
		printSuccess(fmt.Sprintf("Approval confirmed: %s", color.CyanString(approvalHash)))
	} else {
		fmt.Println()
	}
}

// requestApproval builds the approval, routes it through the wallet channel
// and blocks until the explorer reports it confirmed.
func requestApproval(ctx context.Context, cfg *config.Config, aggregator *oneinch.Client, token types.Token) (string, error) {
	if cfg.WalletTopic == "" {
		return "", fmt.Errorf("wallet not connected. Set SLIPSWAP_WALLET_TOPIC or wallet_topic in .slip-swap.yaml")
	}

	approveVal := amount.MaxUint256()
	if approveAmount != "" {
		dec, err := decimal.NewFromString(approveAmount)
		if err != nil {
			return "", fmt.Errorf("invalid approve amount %q: %w", approveAmount, err)
		}
		approveVal, err = amount.ToBaseUnits(dec, token.Decimals)
		if err != nil {
			return "", err
		}
	}

	tx, err := aggregator.BuildApproval(ctx, token, approveVal, cfg.WalletAddress)
	if err != nil {
		return "", err
	}

	sessions := wallet.NewSessionStore()
	sessions.Settle(wallet.Session{
		Topic:   cfg.WalletTopic,
		Address: cfg.WalletAddress,
		Chains:  []string{fmt.Sprintf("eip155:%d", cfg.ChainID)},
	})

	relay, err := wallet.DialRelay(ctx, cfg.RelayURL, logger)
	if err != nil {
		return "", err
	}
	defer relay.Close()

	channel := wallet.NewChannel(sessions, relay, cfg.ChainID,
		wallet.WithDelegatedGas(),
		wallet.WithLogger(logger),
	)
	relay.OnResponse(channel.HandleResponse)

	fmt.Println("\nApprove the request in your wallet...")
	hash, err := channel.Send(ctx, tx)
	if err != nil {
		return "", err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Waiting for approval confirmation..."
	s.Start()

	confirmations := watcher.New(cfg.ScanAPIURL, cfg.ScanAPIKey,
		watcher.WithInterval(cfg.PollInterval),
		watcher.WithMaxAttempts(cfg.MaxPollAttempts),
		watcher.WithLogger(logger),
	)
	err = confirmations.Await(ctx, hash)
	s.Stop()

	if err != nil {
		return "", err
	}
	return hash, nil
}
