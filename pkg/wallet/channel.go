package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slip-swap/pkg/types"
)

var (
	// ErrNoActiveSession is returned when no wallet session is settled.
	ErrNoActiveSession = errors.New("no active wallet session")

	// ErrUnsupportedChain is returned when the session does not serve the
	// target chain.
	ErrUnsupportedChain = errors.New("wallet session does not serve chain")

	// ErrWalletRejected is returned when the wallet answers a signing request
	// with an error.
	ErrWalletRejected = errors.New("wallet rejected the request")

	// ErrMalformedResponse is returned when the wallet's response matches none
	// of the accepted shapes.
	ErrMalformedResponse = errors.New("unexpected wallet response shape")
)

// DefaultActivateDelay is the grace period before the signer app is brought to
// the foreground, giving the relay time to deliver the request first.
const DefaultActivateDelay = 300 * time.Millisecond

// Request is the signing request published to the wallet session topic.
type Request struct {
	ID      int64               `json:"id"`
	Method  string              `json:"method"`
	Params  []map[string]string `json:"params"`
	ChainID string              `json:"chainId"`
}

// ResponseError is the error object a wallet attaches when it declines or
// fails a request.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is one message delivered back from the wallet session.
type Response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

// Transport publishes signing requests toward the wallet. Responses flow back
// through Channel.HandleResponse, wired up by the transport's read loop.
type Transport interface {
	Publish(ctx context.Context, topic string, req Request) error
}

// Channel bridges a synchronous send-transaction call to the fire-and-forget
// session transport. Each outgoing request registers a pending slot before
// dispatch; the first response carrying its id resolves it, exactly once.
type Channel struct {
	sessions  *SessionStore
	transport Transport
	chainID   uint64
	log       zerolog.Logger

	// activate brings the external signer to the foreground after a request
	// is dispatched. Nil means no activation side effect.
	activate      func()
	activateDelay time.Duration

	// delegateGas omits gas and gasPrice from the wire object so the wallet
	// estimates both itself.
	delegateGas bool

	mu      sync.Mutex
	nextID  int64
	pending map[int64]*pendingRequest
}

// pendingRequest correlates one outstanding signing request with its eventual
// response. The sync.Once makes a second resolution a no-op.
type pendingRequest struct {
	once sync.Once
	done chan sendResult
}

type sendResult struct {
	hash string
	err  error
}

func (p *pendingRequest) resolve(hash string, err error) {
	p.once.Do(func() {
		p.done <- sendResult{hash: hash, err: err}
	})
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithActivation installs the hook that foregrounds the signer app, fired
// after each dispatch behind the given grace delay.
func WithActivation(fn func(), delay time.Duration) ChannelOption {
	return func(c *Channel) {
		c.activate = fn
		c.activateDelay = delay
	}
}

// WithDelegatedGas leaves gas estimation to the wallet.
func WithDelegatedGas() ChannelOption {
	return func(c *Channel) { c.delegateGas = true }
}

// WithLogger sets the channel logger.
func WithLogger(log zerolog.Logger) ChannelOption {
	return func(c *Channel) { c.log = log }
}

// NewChannel creates a signing channel over the given transport, targeting one
// chain.
func NewChannel(sessions *SessionStore, transport Transport, chainID uint64, opts ...ChannelOption) *Channel {
	c := &Channel{
		sessions:      sessions,
		transport:     transport,
		chainID:       chainID,
		activateDelay: DefaultActivateDelay,
		log:           zerolog.Nop(),
		pending:       make(map[int64]*pendingRequest),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send submits tx for signing and blocks until the wallet responds with a
// transaction hash, the wallet rejects, or ctx is done.
func (c *Channel) Send(ctx context.Context, tx *types.UnsignedTx) (string, error) {
	sess, ok := c.sessions.Active()
	if !ok {
		return "", ErrNoActiveSession
	}
	caip := fmt.Sprintf("eip155:%d", c.chainID)
	if !sess.SupportsChain(caip) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedChain, caip)
	}

	// Register the pending slot before dispatching, so a response cannot
	// arrive ahead of a listener for it.
	p := &pendingRequest{done: make(chan sendResult, 1)}
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.pending[id] = p
	c.mu.Unlock()
	defer c.drop(id)

	req := Request{
		ID:      id,
		Method:  "eth_sendTransaction",
		Params:  []map[string]string{c.normalizeTx(tx)},
		ChainID: caip,
	}

	c.log.Debug().Int64("id", id).Str("to", tx.To).Msg("dispatching signing request")

	if err := c.transport.Publish(ctx, sess.Topic, req); err != nil {
		// A synchronous dispatch failure resolves immediately rather than
		// waiting on a response that will never come.
		p.resolve("", fmt.Errorf("failed to dispatch signing request: %w", err))
	} else if c.activate != nil {
		go func() {
			time.Sleep(c.activateDelay)
			c.activate()
		}()
	}

	select {
	case r := <-p.done:
		return r.hash, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// HandleResponse delivers one wallet response. The first response for an
// outstanding request resolves it; responses for unknown or already-resolved
// requests are dropped.
func (c *Channel) HandleResponse(resp Response) {
	c.mu.Lock()
	p, ok := c.pending[resp.ID]
	c.mu.Unlock()
	if !ok {
		c.log.Debug().Int64("id", resp.ID).Msg("dropping response with no pending request")
		return
	}

	if resp.Error != nil {
		p.resolve("", fmt.Errorf("%w: %s", ErrWalletRejected, resp.Error.Message))
		return
	}
	hash, err := decodeTxHash(resp.Result)
	p.resolve(hash, err)
}

func (c *Channel) drop(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// normalizeTx flattens the transaction into the wire object with every numeric
// field as a canonical 0x-hex string.
func (c *Channel) normalizeTx(tx *types.UnsignedTx) map[string]string {
	obj := map[string]string{
		"from":  tx.From,
		"to":    tx.To,
		"data":  tx.Data,
		"value": "0x0",
	}
	if tx.Value != nil {
		obj["value"] = tx.Value.Hex()
	}
	if c.delegateGas {
		return obj
	}
	if tx.Gas > 0 {
		obj["gas"] = "0x" + strconv.FormatUint(tx.Gas, 16)
	}
	if tx.GasPrice != nil {
		obj["gasPrice"] = tx.GasPrice.Hex()
	}
	return obj
}

// decodeTxHash interprets the wallet's result over the accepted shapes, in
// order: a bare string hash, an object with a result field, an array whose
// first element is the hash. Anything else is malformed.
func decodeTxHash(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var obj struct {
		Result *string `json:"result"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Result != nil {
		return *obj.Result, nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
		if err := json.Unmarshal(arr[0], &s); err == nil {
			return s, nil
		}
	}

	return "", ErrMalformedResponse
}
