package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/01Clarian/xposure/internal/chain"
)

// PurchaseReceipt is the authoritative outcome of a fee conversion.
type PurchaseReceipt struct {
	// TokensReceived is the treasury token balance delta, the only number
	// the ledger trusts. Venue-reported outputs are ignored.
	TokensReceived int64
	// VenueName is the venue whose transaction landed.
	VenueName string
	// Signature is the confirmed transaction signature.
	Signature string
}

// Purchaser converts an entry fee into reward tokens through a fixed venue
// fallback chain, accounting the receipt by treasury balance delta.
type Purchaser struct {
	status     StatusReader
	curveVenue Venue
	// graduatedVenues are tried in order once the token leaves the curve.
	graduatedVenues []Venue

	balances chain.BalanceReader
	wallet   chain.Wallet
	confirm  chain.Broadcaster

	mint        string
	slippagePPM int64
	settleDelay time.Duration
	logger      zerolog.Logger
}

func NewPurchaser(
	status StatusReader,
	curveVenue Venue,
	graduatedVenues []Venue,
	balances chain.BalanceReader,
	wallet chain.Wallet,
	confirm chain.Broadcaster,
	mint string,
	slippagePPM int64,
	settleDelay time.Duration,
	logger zerolog.Logger,
) *Purchaser {
	return &Purchaser{
		status:          status,
		curveVenue:      curveVenue,
		graduatedVenues: graduatedVenues,
		balances:        balances,
		wallet:          wallet,
		confirm:         confirm,
		mint:            mint,
		slippagePPM:     slippagePPM,
		settleDelay:     settleDelay,
		logger:          logger.With().Str("component", "purchaser").Logger(),
	}
}

// Purchase spends lamports on reward tokens. Each venue attempt reads the
// treasury token balance immediately before submitting its order and again
// after on-chain confirmation plus a short settle delay; the delta is the
// receipt. If every venue in the chain fails, the combined error carries each
// venue's reason and no state has been touched.
func (p *Purchaser) Purchase(ctx context.Context, lamports int64) (PurchaseReceipt, error) {
	if lamports <= 0 {
		return PurchaseReceipt{}, fmt.Errorf("purchase amount must be positive: %d", lamports)
	}

	status, err := p.status.TokenStatus(ctx, p.mint)
	if err != nil {
		return PurchaseReceipt{}, fmt.Errorf("token status: %w", err)
	}

	venues := []Venue{p.curveVenue}
	if status.Graduated {
		venues = p.graduatedVenues
	}

	order := Order{
		Mint:        p.mint,
		Buyer:       p.wallet.Address(),
		Lamports:    lamports,
		SlippagePPM: p.slippagePPM,
	}

	var failures []string
	for _, venue := range venues {
		receipt, err := p.tryVenue(ctx, venue, order)
		if err == nil {
			return receipt, nil
		}
		p.logger.Warn().Err(err).Str("venue", venue.Name()).Msg("venue attempt failed")
		failures = append(failures, fmt.Sprintf("%s: %v", venue.Name(), err))
	}

	return PurchaseReceipt{}, fmt.Errorf("all venues failed: %s", strings.Join(failures, "; "))
}

func (p *Purchaser) tryVenue(ctx context.Context, venue Venue, order Order) (PurchaseReceipt, error) {
	// The balance is read per attempt, right before the order, never cached
	// across venues: a prior venue's transaction that lands late must not be
	// folded into this attempt's delta.
	before, err := p.balances.TokenBalance(ctx, p.wallet.TokenAccount())
	if err != nil {
		return PurchaseReceipt{}, fmt.Errorf("pre-purchase balance: %w", err)
	}

	rawTx, err := venue.BuildBuyTransaction(ctx, order)
	if err != nil {
		return PurchaseReceipt{}, err
	}

	signature, err := p.wallet.SignAndSend(ctx, rawTx)
	if err != nil {
		return PurchaseReceipt{}, fmt.Errorf("sign and send: %w", err)
	}

	if err := p.confirm.ConfirmTransaction(ctx, signature); err != nil {
		return PurchaseReceipt{}, fmt.Errorf("confirm: %w", err)
	}

	if p.settleDelay > 0 {
		select {
		case <-ctx.Done():
			return PurchaseReceipt{}, ctx.Err()
		case <-time.After(p.settleDelay):
		}
	}

	after, err := p.balances.TokenBalance(ctx, p.wallet.TokenAccount())
	if err != nil {
		return PurchaseReceipt{}, fmt.Errorf("post-purchase balance: %w", err)
	}

	delta := after - before
	if delta <= 0 {
		return PurchaseReceipt{}, fmt.Errorf("no tokens received: balance %d -> %d", before, after)
	}

	p.logger.Info().
		Str("venue", venue.Name()).
		Str("signature", signature).
		Int64("lamports", order.Lamports).
		Int64("tokens_received", delta).
		Msg("purchase confirmed")

	return PurchaseReceipt{
		TokensReceived: delta,
		VenueName:      venue.Name(),
		Signature:      signature,
	}, nil
}
