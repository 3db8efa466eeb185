package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"slip-swap/config"
	"slip-swap/pkg/oneinch"
	"slip-swap/pkg/parser"
	"slip-swap/pkg/splitswap"
	"slip-swap/pkg/tokens"
	"slip-swap/pkg/types"
)

var simMaxParts int

var simulateCmd = &cobra.Command{
	Use:   "simulate <amount> <source-token> to <dest-token>",
	Short: "Compare estimated outputs for different split counts",
	Long: `Simulate splitting a swap into 1..N parts and rank the candidates by
estimated total output. The simulation only fetches quotes; nothing is signed
or sent.

Examples:
  slip-swap simulate 2500 USDC to WETH
  slip-swap simulate 10 WETH to USDC --max-parts 8
  slip-swap simulate 1000 DAI to WBTC --json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().IntVar(&simMaxParts, "max-parts", 0, "Highest part count to simulate (default from config)")
}

func runSimulate(cmd *cobra.Command, args []string) {
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

	maxParts := cfg.MaxParts
	if simMaxParts > 0 {
		maxParts = simMaxParts
	}

	aggregator := oneinch.NewClient(cfg.AggregatorURL, cfg.OneInchAPIKey, cfg.ChainID)
	sim := splitswap.NewSimulator(aggregator, logger)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = fmt.Sprintf(" Simulating 1..%d part splits...", maxParts)
		s.Start()
	}

	results, err := sim.Simulate(context.Background(), from, to, total, maxParts)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		type entry struct {
			Parts  int    `json:"parts"`
			Output string `json:"estimated_output"`
			Delta  string `json:"delta_vs_single_part"`
		}
		out := make([]entry, 0, len(results))
		for _, r := range results {
			out = append(out, entry{Parts: r.Parts, Output: r.TotalOutput.String(), Delta: r.DeltaVsSinglePart.String()})
		}
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displaySimulation(results, from, to, total)
}

func displaySimulation(results []splitswap.SplitResult, from, to types.Token, total decimal.Decimal) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                  SPLIT SIMULATION")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Swapping: %s %s -> %s\n\n", total, color.YellowString(from.Symbol), color.YellowString(to.Symbol))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "  PARTS\tEST. OUTPUT\tDELTA VS 1 PART")

	for i, r := range results {
		line := fmt.Sprintf("  %d\t%s %s\t%s", r.Parts, r.TotalOutput, to.Symbol, formatDelta(r.DeltaVsSinglePart))
		if i == 0 {
			line = color.GreenString(line + "\t<- best")
		}
		fmt.Fprintln(w, line)
	}
	w.Flush()

	if best, ok := splitswap.Best(results); ok {
		fmt.Printf("\nBest split: %s\n", color.CyanString("%d part(s)", best.Parts))
		fmt.Printf("Run it with:\n")
		color.Cyan("  slip-swap swap %s %s to %s --parts %d\n", total, from.Symbol, to.Symbol, best.Parts)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func formatDelta(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}

// resolveSwapArgs parses "<amount> <token> to <token>" and resolves both
// symbols against the registry.
func resolveSwapArgs(args []string) (from, to types.Token, total decimal.Decimal, err error) {
	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		return from, to, total, err
	}
	if err = parser.ValidateSwapRequest(swapReq); err != nil {
		return from, to, total, err
	}

	from, err = tokens.Find(parser.NormalizeTokenSymbol(swapReq.SourceToken))
	if err != nil {
		return from, to, total, err
	}
	to, err = tokens.Find(parser.NormalizeTokenSymbol(swapReq.DestToken))
	if err != nil {
		return from, to, total, err
	}

	total, err = decimal.NewFromString(swapReq.Amount)
	if err != nil {
		return from, to, total, fmt.Errorf("invalid amount %q: %w", swapReq.Amount, err)
	}
	return from, to, total, nil
}
