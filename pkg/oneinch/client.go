// Package oneinch is the HTTP client for the 1inch-style swap aggregator. It
// implements the quote, swap-build and allowance gateways consumed by
// pkg/splitswap.
package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"slip-swap/pkg/types"
)

// DefaultBaseURL is the production aggregator endpoint.
const DefaultBaseURL = "https://api.1inch.dev"

// APIError is the structured error body the aggregator returns on non-2xx
// responses.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("aggregator error (status %d): %s", e.StatusCode, e.Message)
	case e.Code != "":
		return fmt.Sprintf("aggregator error (status %d): %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("aggregator error (status %d)", e.StatusCode)
	}
}

// Client talks to the aggregator REST API for a single chain.
type Client struct {
	baseURL    string
	apiKey     string
	chainID    uint64
	httpClient *http.Client
}

// NewClient creates an aggregator client authenticated with a static bearer
// token, scoped to one chain.
func NewClient(baseURL, apiKey string, chainID uint64) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		chainID:    chainID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Quote returns the aggregator's output estimate for swapping amount base
// units of from into to.
func (c *Client) Quote(ctx context.Context, from, to types.Token, amount *uint256.Int) (*types.QuoteEstimate, error) {
	q := url.Values{}
	q.Set("fromTokenAddress", from.Address)
	q.Set("toTokenAddress", to.Address)
	q.Set("amount", amount.Dec())

	var resp quoteResponse
	if err := c.get(ctx, "quote", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	out, err := parseUint256(resp.DstAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid dstAmount in quote response: %w", err)
	}
	return &types.QuoteEstimate{OutAmount: out}, nil
}

// BuildSwap asks the aggregator for an unsigned swap transaction moving amount
// base units of from into to on behalf of wallet. A nil Tx in the result means
// the aggregator found no route for this amount.
func (c *Client) BuildSwap(ctx context.Context, from, to types.Token, amount *uint256.Int, wallet string, slippageBps int) (*types.SwapBuild, error) {
	q := url.Values{}
	q.Set("fromTokenAddress", from.Address)
	q.Set("toTokenAddress", to.Address)
	q.Set("amount", amount.Dec())
	q.Set("fromAddress", wallet)
	q.Set("slippage", formatSlippage(slippageBps))

	var resp swapResponse
	if err := c.get(ctx, "swap", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to build swap: %w", err)
	}

	out, err := parseUint256(resp.DstAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid dstAmount in swap response: %w", err)
	}

	build := &types.SwapBuild{OutAmount: out}
	if resp.Tx != nil {
		tx, err := resp.Tx.toUnsignedTx()
		if err != nil {
			return nil, fmt.Errorf("invalid tx in swap response: %w", err)
		}
		build.Tx = tx
	}
	return build, nil
}

// Allowance reads the amount of token the aggregator's router contract may
// currently spend on behalf of owner.
func (c *Client) Allowance(ctx context.Context, token types.Token, owner string) (*uint256.Int, error) {
	q := url.Values{}
	q.Set("tokenAddress", token.Address)
	q.Set("walletAddress", owner)

	var resp allowanceResponse
	if err := c.get(ctx, "approve/allowance", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to get allowance: %w", err)
	}

	allowance, err := parseUint256(resp.Allowance)
	if err != nil {
		return nil, fmt.Errorf("invalid allowance in response: %w", err)
	}
	return allowance, nil
}

// BuildApproval builds an unsigned approval transaction authorizing the
// aggregator's router to spend amount base units of token.
func (c *Client) BuildApproval(ctx context.Context, token types.Token, amount *uint256.Int, owner string) (*types.UnsignedTx, error) {
	q := url.Values{}
	q.Set("tokenAddress", token.Address)
	q.Set("amount", amount.Dec())
	q.Set("walletAddress", owner)

	var resp txJSON
	if err := c.get(ctx, "approve/transaction", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to build approval: %w", err)
	}

	tx, err := resp.toUnsignedTx()
	if err != nil {
		return nil, fmt.Errorf("invalid approval tx in response: %w", err)
	}
	return tx, nil
}

// get performs an authenticated GET against /swap/v6.0/{chain}/{path} and
// decodes the JSON response into out. Non-2xx responses decode the structured
// error body when possible.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("missing aggregator API key")
	}

	endpoint := fmt.Sprintf("%s/swap/v6.0/%d/%s?%s", c.baseURL, c.chainID, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("aggregator request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read aggregator response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr == nil && (apiErr.Message != "" || apiErr.Code != "") {
			if apiErr.StatusCode == 0 {
				apiErr.StatusCode = resp.StatusCode
			}
			return apiErr
		}
		return &APIError{StatusCode: resp.StatusCode}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode aggregator response: %w", err)
	}
	return nil
}

type quoteResponse struct {
	DstAmount string `json:"dstAmount"`
}

type swapResponse struct {
	DstAmount string  `json:"dstAmount"`
	Tx        *txJSON `json:"tx"`
}

type allowanceResponse struct {
	Allowance string `json:"allowance"`
}

// txJSON is the aggregator's wire form of an unsigned transaction. Numeric
// fields arrive as decimal strings except gas, which is a JSON number.
type txJSON struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

func (t *txJSON) toUnsignedTx() (*types.UnsignedTx, error) {
	value, err := parseUint256(t.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", t.Value, err)
	}

	tx := &types.UnsignedTx{
		From:  t.From,
		To:    t.To,
		Data:  t.Data,
		Value: value,
		Gas:   t.Gas,
	}
	if t.GasPrice != "" {
		gasPrice, err := parseUint256(t.GasPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid gasPrice %q: %w", t.GasPrice, err)
		}
		tx.GasPrice = gasPrice
	}
	return tx, nil
}

// parseUint256 accepts both decimal and 0x-hex string encodings.
func parseUint256(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return uint256.FromHex(s)
	}
	return uint256.FromDecimal(s)
}

// formatSlippage renders basis points as the percentage string the API
// expects, e.g. 100 bps -> "1".
func formatSlippage(bps int) string {
	return strconv.FormatFloat(float64(bps)/100, 'f', -1, 64)
}
