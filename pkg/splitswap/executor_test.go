package splitswap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slip-swap/pkg/amount"
	"slip-swap/pkg/types"
)

const testOwner = "0x1111111111111111111111111111111111111111"

type fakeBuilder struct {
	mu      sync.Mutex
	amounts []*uint256.Int
	buildFn func(amt *uint256.Int) (*types.SwapBuild, error)
}

func (f *fakeBuilder) BuildSwap(_ context.Context, _, _ types.Token, amt *uint256.Int, wallet string, _ int) (*types.SwapBuild, error) {
	f.mu.Lock()
	f.amounts = append(f.amounts, amt.Clone())
	f.mu.Unlock()
	if f.buildFn != nil {
		return f.buildFn(amt)
	}
	return &types.SwapBuild{
		OutAmount: amt.Clone(),
		Tx:        &types.UnsignedTx{From: wallet, To: "0xrouter", Data: "0xdeadbeef"},
	}, nil
}

func (f *fakeBuilder) builds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.amounts)
}

type fakeAllowance struct {
	current    *uint256.Int
	afterTx    *uint256.Int
	reads      int
	approvals  []*uint256.Int
	approveErr error
}

func (f *fakeAllowance) Allowance(_ context.Context, _ types.Token, _ string) (*uint256.Int, error) {
	f.reads++
	if f.reads > 1 && f.afterTx != nil {
		return f.afterTx.Clone(), nil
	}
	return f.current.Clone(), nil
}

func (f *fakeAllowance) BuildApproval(_ context.Context, token types.Token, amt *uint256.Int, owner string) (*types.UnsignedTx, error) {
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	f.approvals = append(f.approvals, amt.Clone())
	return &types.UnsignedTx{From: owner, To: token.Address, Data: "0x095ea7b3"}, nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []*types.UnsignedTx
	sendFn func(tx *types.UnsignedTx) (string, error)
}

func (f *fakeSender) Send(_ context.Context, tx *types.UnsignedTx) (string, error) {
	f.mu.Lock()
	f.sent = append(f.sent, tx)
	n := len(f.sent)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(tx)
	}
	return fmt.Sprintf("0xhash%d", n), nil
}

func (f *fakeSender) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeWatcher struct {
	awaited []string
	err     error
}

func (f *fakeWatcher) Await(_ context.Context, txHash string) error {
	f.awaited = append(f.awaited, txHash)
	return f.err
}

type fakeWallet struct{ addr string }

func (f fakeWallet) Address() string { return f.addr }

func newTestExecutor(b *fakeBuilder, a *fakeAllowance, s *fakeSender, w *fakeWatcher) *Executor {
	return NewExecutor(b, a, s, w, fakeWallet{addr: testOwner}, Config{SlippageBps: 100}, zerolog.Nop())
}

func usdcRequest(total string, parts int) Request {
	return Request{
		From:        testUSDC,
		To:          testWETH,
		TotalAmount: decimal.RequireFromString(total),
		Parts:       parts,
	}
}

func TestExecute_SequentialHappyPath(t *testing.T) {
	builder := &fakeBuilder{}
	allow := &fakeAllowance{current: amount.MaxUint256()}
	sender := &fakeSender{}
	watcher := &fakeWatcher{}
	exec := newTestExecutor(builder, allow, sender, watcher)

	var progress [][2]int
	req := usdcRequest("10", 3)
	req.Progress = func(done, total int) { progress = append(progress, [2]int{done, total}) }

	res, err := exec.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"0xhash1", "0xhash2", "0xhash3"}, res.Hashes)
	assert.False(t, res.Cancelled)
	assert.Empty(t, res.SkippedParts)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	// 10 USDC over 3 parts: remainder lands on the first chunk.
	require.Equal(t, 3, builder.builds())
	assert.Equal(t, "3333334", builder.amounts[0].Dec())
	assert.Equal(t, "3333333", builder.amounts[1].Dec())
	assert.Equal(t, "3333333", builder.amounts[2].Dec())

	assert.Equal(t, 1, allow.reads, "sufficient allowance must be read once")
	assert.Empty(t, allow.approvals)
	assert.Empty(t, watcher.awaited, "no confirmation waits when disabled")
}

func TestExecute_CancellationReturnsPartialResult(t *testing.T) {
	builder := &fakeBuilder{}
	allow := &fakeAllowance{current: amount.MaxUint256()}
	sender := &fakeSender{}
	exec := newTestExecutor(builder, allow, sender, &fakeWatcher{})

	completed := 0
	req := usdcRequest("50", 5)
	req.Progress = func(done, _ int) { completed = done }
	req.ShouldCancel = func() bool { return completed >= 2 }

	res, err := exec.Execute(context.Background(), req)
	require.NoError(t, err, "cancellation is not an error")

	assert.True(t, res.Cancelled)
	assert.Equal(t, []string{"0xhash1", "0xhash2"}, res.Hashes)
	assert.Equal(t, 2, builder.builds(), "parts after the cancel point must not be built")
	assert.True(t, exec.Progress().CancelRequested)
}

func TestExecute_MissingRouteSkipsPart(t *testing.T) {
	call := 0
	builder := &fakeBuilder{buildFn: func(amt *uint256.Int) (*types.SwapBuild, error) {
		call++
		if call == 2 {
			return &types.SwapBuild{}, nil
		}
		return &types.SwapBuild{OutAmount: amt.Clone(), Tx: &types.UnsignedTx{To: "0xrouter"}}, nil
	}}
	allow := &fakeAllowance{current: amount.MaxUint256()}
	sender := &fakeSender{}
	exec := newTestExecutor(builder, allow, sender, &fakeWatcher{})

	res, err := exec.Execute(context.Background(), usdcRequest("9", 3))
	require.NoError(t, err)

	assert.Equal(t, []string{"0xhash1", "0xhash2"}, res.Hashes)
	assert.Equal(t, []int{1}, res.SkippedParts)
	assert.Equal(t, 3, builder.builds())
}

func TestExecute_BuildErrorAborts(t *testing.T) {
	boom := errors.New("aggregator down")
	call := 0
	builder := &fakeBuilder{buildFn: func(amt *uint256.Int) (*types.SwapBuild, error) {
		call++
		if call == 2 {
			return nil, boom
		}
		return &types.SwapBuild{OutAmount: amt.Clone(), Tx: &types.UnsignedTx{To: "0xrouter"}}, nil
	}}
	allow := &fakeAllowance{current: amount.MaxUint256()}
	exec := newTestExecutor(builder, allow, &fakeSender{}, &fakeWatcher{})

	res, err := exec.Execute(context.Background(), usdcRequest("9", 3))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, exec.Progress().LastError, boom)
}

func TestExecute_ApprovalFlow(t *testing.T) {
	required, err := amount.ToBaseUnits(decimal.RequireFromString("10"), testUSDC.Decimals)
	require.NoError(t, err)

	allow := &fakeAllowance{current: uint256.NewInt(0), afterTx: amount.MaxUint256()}
	sender := &fakeSender{}
	watcher := &fakeWatcher{}
	exec := newTestExecutor(&fakeBuilder{}, allow, sender, watcher)

	res, err := exec.Execute(context.Background(), usdcRequest("10", 2))
	require.NoError(t, err)

	require.Len(t, allow.approvals, 1)
	assert.Equal(t, amount.MaxUint256(), allow.approvals[0], "approval must be unlimited, not per-run")
	assert.Equal(t, 2, allow.reads, "allowance re-checked after the approval confirms")
	assert.Equal(t, []string{"0xhash1"}, watcher.awaited, "approval confirmation is always awaited")
	assert.Equal(t, 3, sender.sends(), "one approval plus two parts")
	assert.Len(t, res.Hashes, 2)
	assert.True(t, allow.approvals[0].Cmp(required) > 0)
}

func TestExecute_AllowanceNotUpdated(t *testing.T) {
	allow := &fakeAllowance{current: uint256.NewInt(0), afterTx: uint256.NewInt(1)}
	exec := newTestExecutor(&fakeBuilder{}, allow, &fakeSender{}, &fakeWatcher{})

	res, err := exec.Execute(context.Background(), usdcRequest("10", 2))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrAllowanceNotUpdated)
}

func TestExecute_NativeTokenSkipsApproval(t *testing.T) {
	native := types.Token{Symbol: "POL", Address: types.NativeTokenAddress, Decimals: 18}
	allow := &fakeAllowance{current: uint256.NewInt(0)}
	exec := newTestExecutor(&fakeBuilder{}, allow, &fakeSender{}, &fakeWatcher{})

	req := Request{From: native, To: testUSDC, TotalAmount: decimal.RequireFromString("1"), Parts: 2}
	res, err := exec.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, allow.reads, "native coin has no allowance to read")
	assert.Empty(t, allow.approvals)
	assert.Len(t, res.Hashes, 2)
}

func TestExecute_WaitForConfirmation(t *testing.T) {
	builder := &fakeBuilder{}
	allow := &fakeAllowance{current: amount.MaxUint256()}
	sender := &fakeSender{}
	watcher := &fakeWatcher{}
	exec := NewExecutor(builder, allow, sender, watcher, fakeWallet{addr: testOwner},
		Config{SlippageBps: 100, WaitForConfirmation: true}, zerolog.Nop())

	res, err := exec.Execute(context.Background(), usdcRequest("10", 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"0xhash1", "0xhash2"}, watcher.awaited)
	assert.Len(t, res.Hashes, 2)
}

func TestExecute_ConfirmationFailureAborts(t *testing.T) {
	watcher := &fakeWatcher{err: errors.New("not confirmed within the polling window")}
	allow := &fakeAllowance{current: amount.MaxUint256()}
	exec := NewExecutor(&fakeBuilder{}, allow, &fakeSender{}, watcher, fakeWallet{addr: testOwner},
		Config{WaitForConfirmation: true}, zerolog.Nop())

	res, err := exec.Execute(context.Background(), usdcRequest("10", 2))
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "confirmation of part 1")
}

func TestExecute_ValidationErrors(t *testing.T) {
	allow := &fakeAllowance{current: amount.MaxUint256()}

	t.Run("zero parts", func(t *testing.T) {
		exec := newTestExecutor(&fakeBuilder{}, allow, &fakeSender{}, &fakeWatcher{})
		_, err := exec.Execute(context.Background(), usdcRequest("10", 0))
		assert.ErrorIs(t, err, amount.ErrInvalidParts)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		exec := newTestExecutor(&fakeBuilder{}, allow, &fakeSender{}, &fakeWatcher{})
		_, err := exec.Execute(context.Background(), usdcRequest("0", 2))
		assert.ErrorIs(t, err, amount.ErrInvalidAmount)
	})

	t.Run("wallet not connected", func(t *testing.T) {
		exec := NewExecutor(&fakeBuilder{}, allow, &fakeSender{}, &fakeWatcher{}, fakeWallet{}, Config{}, zerolog.Nop())
		_, err := exec.Execute(context.Background(), usdcRequest("10", 2))
		assert.ErrorIs(t, err, ErrWalletNotConnected)
	})
}

func TestExecute_RejectsConcurrentRun(t *testing.T) {
	allow := &fakeAllowance{current: amount.MaxUint256()}
	release := make(chan struct{})
	started := make(chan struct{})
	sender := &fakeSender{sendFn: func(_ *types.UnsignedTx) (string, error) {
		close(started)
		<-release
		return "0xslow", nil
	}}
	exec := newTestExecutor(&fakeBuilder{}, allow, sender, &fakeWatcher{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := exec.Execute(context.Background(), usdcRequest("10", 1))
		assert.NoError(t, err)
	}()

	<-started
	assert.True(t, exec.IsRunning())
	_, err := exec.Execute(context.Background(), usdcRequest("10", 1))
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	<-done
	assert.False(t, exec.IsRunning())
}

func TestExecute_ZeroChunksAreSkipped(t *testing.T) {
	// 3 base units over 5 parts leaves two zero chunks that must not build.
	builder := &fakeBuilder{}
	allow := &fakeAllowance{current: amount.MaxUint256()}
	exec := newTestExecutor(builder, allow, &fakeSender{}, &fakeWatcher{})

	res, err := exec.Execute(context.Background(), usdcRequest("0.000003", 5))
	require.NoError(t, err)
	assert.Len(t, res.Hashes, 3)
	assert.Equal(t, 3, builder.builds())
}
