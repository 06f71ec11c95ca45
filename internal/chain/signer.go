package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Wallet executes transfers and signs raw transactions with the treasury key.
// Key material never lives in this process; signing is delegated to the
// wallet sidecar.
type Wallet interface {
	// Address is the treasury's native account address.
	Address() string
	// TokenAccount is the treasury's reward-token account address.
	TokenAccount() string
	// SignAndSend signs a venue-built raw transaction and broadcasts it.
	SignAndSend(ctx context.Context, rawTxBase64 string) (signature string, err error)
	// TransferLamports moves native funds from the treasury to an address.
	TransferLamports(ctx context.Context, to string, lamports int64) (signature string, err error)
	// TransferTokens moves reward tokens from the treasury to an address.
	TransferTokens(ctx context.Context, to string, amount int64) (signature string, err error)
}

// SignerClient is the HTTP client for the wallet sidecar.
type SignerClient struct {
	baseURL      string
	address      string
	tokenAccount string
	httpClient   *http.Client
	logger       zerolog.Logger
}

func NewSignerClient(baseURL, address, tokenAccount string, logger zerolog.Logger) *SignerClient {
	return &SignerClient{
		baseURL:      baseURL,
		address:      address,
		tokenAccount: tokenAccount,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		logger:       logger.With().Str("component", "signer").Logger(),
	}
}

func (s *SignerClient) Address() string      { return s.address }
func (s *SignerClient) TokenAccount() string { return s.tokenAccount }

type signerResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

func (s *SignerClient) post(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal signer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build signer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("signer %s: %w", path, err)
	}
	defer resp.Body.Close()

	var out signerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode signer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signer %s: status %d: %s", path, resp.StatusCode, out.Error)
	}
	if out.Error != "" {
		return "", fmt.Errorf("signer %s: %s", path, out.Error)
	}
	return out.Signature, nil
}

func (s *SignerClient) SignAndSend(ctx context.Context, rawTxBase64 string) (string, error) {
	return s.post(ctx, "/v1/sign-and-send", map[string]any{
		"transaction": rawTxBase64,
	})
}

func (s *SignerClient) TransferLamports(ctx context.Context, to string, lamports int64) (string, error) {
	sig, err := s.post(ctx, "/v1/transfer", map[string]any{
		"to":       to,
		"lamports": lamports,
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug().Str("to", to).Int64("lamports", lamports).Str("signature", sig).
		Msg("native transfer sent")
	return sig, nil
}

func (s *SignerClient) TransferTokens(ctx context.Context, to string, amount int64) (string, error) {
	sig, err := s.post(ctx, "/v1/transfer-token", map[string]any{
		"to":     to,
		"amount": amount,
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug().Str("to", to).Int64("amount", amount).Str("signature", sig).
		Msg("token transfer sent")
	return sig, nil
}
