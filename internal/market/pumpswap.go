package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// PumpSwapVenue is the preferred post-graduation venue: the AMM the token
// migrates to when its bonding curve completes.
type PumpSwapVenue struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewPumpSwapVenue(baseURL string, logger zerolog.Logger) *PumpSwapVenue {
	return &PumpSwapVenue{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger.With().Str("venue", "pumpswap").Logger(),
	}
}

func (v *PumpSwapVenue) Name() string { return "pumpswap" }

func (v *PumpSwapVenue) BuildBuyTransaction(ctx context.Context, order Order) (string, error) {
	payload := map[string]any{
		"publicKey": order.Buyer,
		"action":    "buy",
		"mint":      order.Mint,
		"amount":    order.Lamports,
		"slippage":  float64(order.SlippagePPM) / 10_000,
		"pool":      "pump-amm",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal pumpswap order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build pumpswap order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pumpswap order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pumpswap order: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Transaction string `json:"transaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Transaction == "" {
		return "", fmt.Errorf("pumpswap order: missing transaction payload")
	}

	v.logger.Debug().Int64("lamports", order.Lamports).Msg("amm buy built")
	return out.Transaction, nil
}
