package market

import (
	"context"
)

// TokenStatus reports where the reward token currently trades.
type TokenStatus struct {
	// Graduated is true once the token has left the bonding curve.
	Graduated bool
}

// Order is a buy request for the reward token, priced in lamports.
type Order struct {
	// Mint is the reward token's mint address.
	Mint string
	// Buyer is the treasury address that pays and receives.
	Buyer string
	// Lamports is the native amount to spend.
	Lamports int64
	// SlippagePPM caps acceptable price movement.
	SlippagePPM int64
}

// Venue builds signable buy transactions against one external market.
// A venue never signs or broadcasts; it only produces the raw transaction
// payload. Output amounts a venue self-reports are advisory only.
type Venue interface {
	// Name identifies the venue in logs and aggregated failure reports.
	Name() string
	// BuildBuyTransaction returns a base64-encoded unsigned transaction.
	// An empty payload is an error.
	BuildBuyTransaction(ctx context.Context, order Order) (rawTxBase64 string, err error)
}

// StatusReader resolves the token's graduation status. Separate from Venue:
// only the bonding-curve operator knows graduation state.
type StatusReader interface {
	TokenStatus(ctx context.Context, mint string) (TokenStatus, error)
}
