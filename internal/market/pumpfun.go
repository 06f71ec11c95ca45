package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// PumpFunVenue buys on the bonding curve before graduation. It also serves
// as the StatusReader: the curve operator is the authority on whether the
// token has graduated.
type PumpFunVenue struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewPumpFunVenue(baseURL string, logger zerolog.Logger) *PumpFunVenue {
	return &PumpFunVenue{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger.With().Str("venue", "pumpfun").Logger(),
	}
}

func (v *PumpFunVenue) Name() string { return "pumpfun" }

// TokenStatus reads the coin record; complete=true means graduated.
func (v *PumpFunVenue) TokenStatus(ctx context.Context, mint string) (TokenStatus, error) {
	url := fmt.Sprintf("%s/coins/%s", v.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return TokenStatus{}, fmt.Errorf("build status request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return TokenStatus{}, fmt.Errorf("pumpfun status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TokenStatus{}, fmt.Errorf("pumpfun status: unexpected status %d", resp.StatusCode)
	}

	var coin struct {
		Complete bool `json:"complete"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&coin); err != nil {
		return TokenStatus{}, fmt.Errorf("decode pumpfun status: %w", err)
	}
	return TokenStatus{Graduated: coin.Complete}, nil
}

// BuildBuyTransaction requests a curve buy transaction. The amount is
// denominated in the native token; the venue handles curve pricing.
func (v *PumpFunVenue) BuildBuyTransaction(ctx context.Context, order Order) (string, error) {
	payload := map[string]any{
		"publicKey":        order.Buyer,
		"action":           "buy",
		"mint":             order.Mint,
		"amount":           order.Lamports,
		"denominatedInSol": true,
		"slippage":         float64(order.SlippagePPM) / 10_000, // percent
		"pool":             "pump",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal pumpfun order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/trade-local", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build pumpfun order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pumpfun order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pumpfun order: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read pumpfun order response: %w", err)
	}

	var out struct {
		Transaction string `json:"transaction"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Transaction == "" {
		return "", fmt.Errorf("pumpfun order: missing transaction payload")
	}

	v.logger.Debug().Int64("lamports", order.Lamports).Msg("curve buy built")
	return out.Transaction, nil
}
