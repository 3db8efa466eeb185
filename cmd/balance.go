package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"slip-swap/config"
	"slip-swap/pkg/amount"
	"slip-swap/pkg/balance"
	"slip-swap/pkg/parser"
	"slip-swap/pkg/tokens"
)

var balanceAddress string

var balanceCmd = &cobra.Command{
	Use:   "balance <token>",
	Short: "Show a token balance for the connected wallet",
	Long: `Read a token balance over the configured RPC endpoint. Defaults to the
configured wallet address; use --address to check another account.

Examples:
  slip-swap balance USDC
  slip-swap balance POL
  slip-swap balance WETH --address 0x1234...abcd`,
	Args: cobra.ExactArgs(1),
	Run:  runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().StringVar(&balanceAddress, "address", "", "Account to check (defaults to the configured wallet)")
}

func runBalance(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	token, err := tokens.Find(parser.NormalizeTokenSymbol(args[0]))
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

	owner := balanceAddress
	if owner == "" {
		owner = cfg.WalletAddress
	}
	if owner == "" {
		printError(fmt.Errorf("no account to check. Pass --address or set SLIPSWAP_WALLET_ADDRESS"))
		os.Exit(1)
	}

	reader, err := balance.NewReader(cfg.RPCURL)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer reader.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching balance..."
		s.Start()
	}

	bal, err := reader.BalanceOf(context.Background(), token, owner)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	human := amount.FromBaseUnits(bal, token.Decimals)

	if jsonOutput {
		output := map[string]interface{}{
			"token":      token.Symbol,
			"address":    owner,
			"balance":    human.String(),
			"base_units": bal.Dec(),
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Printf("\n  Account: %s\n", color.CyanString(owner))
	fmt.Printf("  Balance: %s %s\n\n", human, color.YellowString(token.Symbol))
}
