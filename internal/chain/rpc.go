package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// BalanceReader reads on-chain balances. The purchase accountant measures
// before/after deltas through this interface; everything else about the chain
// stays opaque.
type BalanceReader interface {
	LamportBalance(ctx context.Context, address string) (int64, error)
	TokenBalance(ctx context.Context, tokenAccount string) (int64, error)
}

// Broadcaster submits a signed transaction and waits for finality. It either
// succeeds or fails with a reason; no intermediate state is exposed.
type Broadcaster interface {
	SendTransaction(ctx context.Context, signedTxBase64 string) (signature string, err error)
	ConfirmTransaction(ctx context.Context, signature string) error
}

// RPCClient talks JSON-RPC to a chain node.
type RPCClient struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
	requestID  atomic.Int64

	confirmPollInterval time.Duration
	confirmTimeout      time.Duration
}

func NewRPCClient(url string, logger zerolog.Logger) *RPCClient {
	return &RPCClient{
		url:                 url,
		httpClient:          &http.Client{Timeout: 30 * time.Second},
		logger:              logger.With().Str("component", "chain_rpc").Logger(),
		confirmPollInterval: 2 * time.Second,
		confirmTimeout:      90 * time.Second,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

// LamportBalance returns the native balance of an address in lamports.
func (c *RPCClient) LamportBalance(ctx context.Context, address string) (int64, error) {
	var result struct {
		Value int64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{address}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// TokenBalance returns a token account's balance in base units.
func (c *RPCClient) TokenBalance(ctx context.Context, tokenAccount string) (int64, error) {
	var result struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountBalance", []any{tokenAccount}, &result); err != nil {
		return 0, err
	}
	amount, err := strconv.ParseInt(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token amount %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

// SendTransaction broadcasts a base64-encoded signed transaction.
func (c *RPCClient) SendTransaction(ctx context.Context, signedTxBase64 string) (string, error) {
	var signature string
	params := []any{signedTxBase64, map[string]any{"encoding": "base64"}}
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	c.logger.Debug().Str("signature", signature).Msg("transaction broadcast")
	return signature, nil
}

// ConfirmTransaction polls signature status until the transaction finalizes,
// errs on-chain, or the confirmation window elapses.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string) error {
	deadline := time.Now().Add(c.confirmTimeout)
	ticker := time.NewTicker(c.confirmPollInterval)
	defer ticker.Stop()

	for {
		var result struct {
			Value []*struct {
				ConfirmationStatus string          `json:"confirmationStatus"`
				Err                json.RawMessage `json:"err"`
			} `json:"value"`
		}
		err := c.call(ctx, "getSignatureStatuses", []any{[]string{signature}}, &result)
		if err == nil && len(result.Value) == 1 && result.Value[0] != nil {
			status := result.Value[0]
			if len(status.Err) > 0 && string(status.Err) != "null" {
				return fmt.Errorf("transaction %s failed on chain: %s", signature, status.Err)
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("transaction %s not confirmed within %s", signature, c.confirmTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
