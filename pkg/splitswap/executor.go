package splitswap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"slip-swap/pkg/amount"
	"slip-swap/pkg/types"
)

var (
	// ErrWalletNotConnected is returned when no wallet address can be
	// resolved for the run.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrAllowanceNotUpdated is returned when the allowance re-check after a
	// confirmed approval still comes back insufficient.
	ErrAllowanceNotUpdated = errors.New("allowance not updated after approval")

	// ErrAlreadyRunning is returned when a new run is started while one is in
	// flight; executions are serialized per executor.
	ErrAlreadyRunning = errors.New("a split swap is already running")
)

// DefaultPartDelayFloor is the minimum pause between parts when not waiting
// for confirmation, keeping the external signer from being hit with
// back-to-back prompts.
const DefaultPartDelayFloor = 800 * time.Millisecond

// Config carries the execution tunables.
type Config struct {
	SlippageBps int

	// WaitForConfirmation blocks after each part until the explorer reports
	// it confirmed.
	WaitForConfirmation bool

	// PartDelay is the pause between parts when not waiting for confirmation.
	// Values below PartDelayFloor are raised to it.
	PartDelay      time.Duration
	PartDelayFloor time.Duration
}

// Request describes one split-swap run.
type Request struct {
	From        types.Token
	To          types.Token
	TotalAmount decimal.Decimal
	Parts       int

	// Progress is invoked after each executed part with (completed, total).
	Progress func(completed, total int)

	// ShouldCancel is polled before each part. Cancellation is cooperative:
	// a part already sent to the wallet runs to completion.
	ShouldCancel func() bool
}

// Result is what a run produced: one hash per part that actually executed, in
// part order. A cancelled run is a valid partial result, not an error.
type Result struct {
	Hashes    []string
	Cancelled bool

	// SkippedParts lists part indexes the aggregator found no route for.
	SkippedParts []int
}

// ExecutionProgress is the run snapshot read by the presentation layer. Only
// the executing goroutine mutates it.
type ExecutionProgress struct {
	CompletedParts  int
	TotalParts      int
	LastError       error
	CancelRequested bool
}

// ApprovalStatus reports how the spender authorization was satisfied.
type ApprovalStatus struct {
	AlreadySufficient bool
	ApprovalTxHash    string
}

// Executor drives a split swap end to end: allowance, then one build+sign
// round per part, strictly in part order. One executor runs at most one swap
// at a time; starting a second run while one is in flight fails.
type Executor struct {
	builder   SwapTxBuilder
	allowance AllowanceGateway
	sender    TxSender
	watcher   ConfirmationAwaiter
	wallets   WalletResolver
	cfg       Config
	log       zerolog.Logger

	mu       sync.Mutex
	running  bool
	progress ExecutionProgress
}

// NewExecutor wires an executor from its collaborators.
func NewExecutor(builder SwapTxBuilder, allowance AllowanceGateway, sender TxSender, watcher ConfirmationAwaiter, wallets WalletResolver, cfg Config, log zerolog.Logger) *Executor {
	return &Executor{
		builder:   builder,
		allowance: allowance,
		sender:    sender,
		watcher:   watcher,
		wallets:   wallets,
		cfg:       cfg,
		log:       log,
	}
}

// IsRunning reports whether a run is in flight.
func (e *Executor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Progress returns the current run snapshot.
func (e *Executor) Progress() ExecutionProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// Execute runs one split swap. It returns partial hashes with Cancelled set
// when ShouldCancel fires; a per-part missing route is recorded and skipped;
// every other failure aborts the run.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := e.begin(req); err != nil {
		return nil, err
	}
	defer e.finish()

	if req.Parts < 1 {
		return nil, fmt.Errorf("%w: got %d", amount.ErrInvalidParts, req.Parts)
	}
	if !req.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: total must be positive", amount.ErrInvalidAmount)
	}
	owner := e.wallets.Address()
	if owner == "" {
		return nil, ErrWalletNotConnected
	}

	totalBase, err := amount.ToBaseUnits(req.TotalAmount, req.From.Decimals)
	if err != nil {
		return nil, err
	}
	chunks, err := amount.Split(totalBase, req.Parts)
	if err != nil {
		return nil, err
	}

	// Authorization covers the full total once, not per part; N approvals
	// would cost N signing round-trips for nothing.
	approval, err := e.ensureAllowance(ctx, req.From, owner, totalBase)
	if err != nil {
		e.setLastError(err)
		return nil, err
	}
	if approval.AlreadySufficient {
		e.log.Debug().Str("token", req.From.Symbol).Msg("allowance already sufficient")
	} else {
		e.log.Info().Str("txhash", approval.ApprovalTxHash).Str("token", req.From.Symbol).Msg("approval confirmed")
	}

	res := &Result{Hashes: make([]string, 0, req.Parts)}
	for i, chunk := range chunks {
		if e.cancelRequested(req) {
			res.Cancelled = true
			break
		}
		if chunk.IsZero() {
			e.log.Debug().Int("part", i+1).Msg("skipping zero-amount part")
			continue
		}

		build, err := e.builder.BuildSwap(ctx, req.From, req.To, chunk, owner, e.cfg.SlippageBps)
		if err != nil {
			e.setLastError(err)
			return nil, fmt.Errorf("failed to build swap for part %d: %w", i+1, err)
		}
		if build.Tx == nil {
			// No route for this amount; the remaining parts may still route.
			e.log.Warn().Int("part", i+1).Str("amount", chunk.Dec()).Msg("no route for part, skipping")
			res.SkippedParts = append(res.SkippedParts, i)
			continue
		}

		hash, err := e.sender.Send(ctx, build.Tx)
		if err != nil {
			e.setLastError(err)
			return nil, fmt.Errorf("failed to send part %d: %w", i+1, err)
		}
		res.Hashes = append(res.Hashes, hash)
		e.log.Info().Int("part", i+1).Int("total", req.Parts).Str("txhash", hash).Msg("part submitted")
		e.report(req, i+1)

		if e.cfg.WaitForConfirmation {
			if err := e.watcher.Await(ctx, hash); err != nil {
				e.setLastError(err)
				return nil, fmt.Errorf("confirmation of part %d: %w", i+1, err)
			}
		} else if i < len(chunks)-1 {
			if err := e.pause(ctx); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

// ensureAllowance authorizes the spender for the full run total before the
// first part executes. Approvals are sized to the maximum representable
// amount, so later runs on the same token skip this step entirely.
func (e *Executor) ensureAllowance(ctx context.Context, token types.Token, owner string, required *uint256.Int) (*ApprovalStatus, error) {
	// Native-coin swaps carry value directly; there is nothing to approve.
	if token.IsNative() {
		return &ApprovalStatus{AlreadySufficient: true}, nil
	}

	current, err := e.allowance.Allowance(ctx, token, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance: %w", err)
	}
	if current.Cmp(required) >= 0 {
		return &ApprovalStatus{AlreadySufficient: true}, nil
	}

	approveTx, err := e.allowance.BuildApproval(ctx, token, amount.MaxUint256(), owner)
	if err != nil {
		return nil, fmt.Errorf("failed to build approval: %w", err)
	}
	hash, err := e.sender.Send(ctx, approveTx)
	if err != nil {
		return nil, fmt.Errorf("failed to send approval: %w", err)
	}
	e.log.Info().Str("txhash", hash).Str("token", token.Symbol).Msg("approval submitted")

	if err := e.watcher.Await(ctx, hash); err != nil {
		return nil, fmt.Errorf("approval confirmation: %w", err)
	}

	current, err = e.allowance.Allowance(ctx, token, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read allowance: %w", err)
	}
	if current.Cmp(required) < 0 {
		return nil, ErrAllowanceNotUpdated
	}
	return &ApprovalStatus{ApprovalTxHash: hash}, nil
}

func (e *Executor) pause(ctx context.Context) error {
	delay := e.cfg.PartDelay
	if delay < e.cfg.PartDelayFloor {
		delay = e.cfg.PartDelayFloor
	}
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (e *Executor) cancelRequested(req Request) bool {
	if req.ShouldCancel == nil || !req.ShouldCancel() {
		return false
	}
	e.mu.Lock()
	e.progress.CancelRequested = true
	e.mu.Unlock()
	e.log.Info().Msg("split swap cancelled, returning partial result")
	return true
}

func (e *Executor) report(req Request, completed int) {
	e.mu.Lock()
	e.progress.CompletedParts = completed
	e.mu.Unlock()
	if req.Progress != nil {
		req.Progress(completed, req.Parts)
	}
}

func (e *Executor) setLastError(err error) {
	e.mu.Lock()
	e.progress.LastError = err
	e.mu.Unlock()
}

func (e *Executor) begin(req Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}
	e.running = true
	e.progress = ExecutionProgress{TotalParts: req.Parts}
	return nil
}

func (e *Executor) finish() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}
