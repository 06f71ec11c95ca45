package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// wrapped native mint, the input side of every aggregator buy
const nativeMint = "So11111111111111111111111111111111111111112"

// JupiterVenue is the aggregator fallback used when the preferred
// post-graduation venue fails. Two-step flow: quote, then swap transaction.
type JupiterVenue struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewJupiterVenue(baseURL string, logger zerolog.Logger) *JupiterVenue {
	return &JupiterVenue{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger.With().Str("venue", "jupiter").Logger(),
	}
}

func (v *JupiterVenue) Name() string { return "jupiter" }

func (v *JupiterVenue) BuildBuyTransaction(ctx context.Context, order Order) (string, error) {
	quote, err := v.quote(ctx, order)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"quoteResponse":             quote,
		"userPublicKey":             order.Buyer,
		"wrapAndUnwrapSol":          true,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": "auto",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal jupiter swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build jupiter swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("jupiter swap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jupiter swap: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter swap: missing transaction payload")
	}

	v.logger.Debug().Int64("lamports", order.Lamports).Msg("aggregator buy built")
	return out.SwapTransaction, nil
}

// quote fetches a routed quote; the raw quote body is passed through to the
// swap endpoint unchanged.
func (v *JupiterVenue) quote(ctx context.Context, order Order) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("inputMint", nativeMint)
	params.Set("outputMint", order.Mint)
	params.Set("amount", strconv.FormatInt(order.Lamports, 10))
	params.Set("slippageBps", strconv.FormatInt(order.SlippagePPM/100, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build jupiter quote request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote: unexpected status %d", resp.StatusCode)
	}

	var quote json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("decode jupiter quote: %w", err)
	}
	return quote, nil
}
