package splitswap

import (
	"context"
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"slip-swap/pkg/amount"
	"slip-swap/pkg/types"
)

// SplitResult is the simulated outcome of executing the trade as Parts equal
// sub-trades. DeltaVsSinglePart is zero for the single-part entry by
// construction.
type SplitResult struct {
	Parts             int
	TotalOutput       decimal.Decimal
	DeltaVsSinglePart decimal.Decimal
}

// Simulator estimates the output of splitting one trade into 1..maxParts
// sub-trades using quotes only. It never touches the wallet.
type Simulator struct {
	quotes QuoteGateway
	log    zerolog.Logger
}

// NewSimulator creates a simulator over the given quote gateway.
func NewSimulator(quotes QuoteGateway, log zerolog.Logger) *Simulator {
	return &Simulator{quotes: quotes, log: log}
}

// Simulate ranks every candidate part count by simulated total output,
// descending; ties prefer fewer parts, since each part costs a transaction.
// A failed quote aborts the whole run: a partial ranking could steer the user
// toward a worse split.
func (s *Simulator) Simulate(ctx context.Context, from, to types.Token, total decimal.Decimal, maxParts int) ([]SplitResult, error) {
	if maxParts < 1 {
		return nil, fmt.Errorf("%w: got %d", amount.ErrInvalidParts, maxParts)
	}
	totalBase, err := amount.ToBaseUnits(total, from.Decimals)
	if err != nil {
		return nil, err
	}

	results := make([]SplitResult, 0, maxParts)
	for n := 1; n <= maxParts; n++ {
		chunks, err := amount.Split(totalBase, n)
		if err != nil {
			return nil, err
		}

		sum, err := s.sumQuotes(ctx, from, to, chunks)
		if err != nil {
			return nil, fmt.Errorf("simulation failed at %d parts: %w", n, err)
		}

		out := amount.FromBaseUnits(sum, to.Decimals)
		results = append(results, SplitResult{Parts: n, TotalOutput: out})
		s.log.Debug().Int("parts", n).Str("output", out.String()).Msg("simulated split")
	}

	// results[0] is the 1-part candidate before ranking; it anchors the deltas.
	base := results[0].TotalOutput
	for i := range results {
		results[i].DeltaVsSinglePart = results[i].TotalOutput.Sub(base)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].TotalOutput.Equal(results[j].TotalOutput) {
			return results[i].TotalOutput.GreaterThan(results[j].TotalOutput)
		}
		return results[i].Parts < results[j].Parts
	})
	return results, nil
}

// sumQuotes fans the per-chunk quotes out concurrently; chunk order does not
// matter for a read-only estimate. Zero chunks are skipped.
func (s *Simulator) sumQuotes(ctx context.Context, from, to types.Token, chunks []*uint256.Int) (*uint256.Int, error) {
	outs := make([]*uint256.Int, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		if chunk.IsZero() {
			continue
		}
		g.Go(func() error {
			est, err := s.quotes.Quote(gctx, from, to, chunk)
			if err != nil {
				return err
			}
			outs[i] = est.OutAmount
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := new(uint256.Int)
	for _, out := range outs {
		if out != nil {
			sum.Add(sum, out)
		}
	}
	return sum, nil
}

// Best returns the top-ranked entry of a Simulate result.
func Best(results []SplitResult) (SplitResult, bool) {
	if len(results) == 0 {
		return SplitResult{}, false
	}
	return results[0], true
}
