package market_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/01Clarian/xposure/internal/market"
)

type fakeStatus struct {
	graduated bool
	err       error
}

func (f *fakeStatus) TokenStatus(ctx context.Context, mint string) (market.TokenStatus, error) {
	return market.TokenStatus{Graduated: f.graduated}, f.err
}

type fakeVenue struct {
	name    string
	buildErr error
	called  int
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) BuildBuyTransaction(ctx context.Context, order market.Order) (string, error) {
	f.called++
	if f.buildErr != nil {
		return "", f.buildErr
	}
	return "rawtx-" + f.name, nil
}

type fakeChain struct {
	balances   []int64 // consumed per TokenBalance call
	signErr    error
	confirmErr error
}

func (f *fakeChain) LamportBalance(ctx context.Context, address string) (int64, error) {
	return 0, nil
}

func (f *fakeChain) TokenBalance(ctx context.Context, tokenAccount string) (int64, error) {
	if len(f.balances) == 0 {
		return 0, errors.New("no balance scripted")
	}
	b := f.balances[0]
	f.balances = f.balances[1:]
	return b, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, signedTxBase64 string) (string, error) {
	return "sig", nil
}

func (f *fakeChain) ConfirmTransaction(ctx context.Context, signature string) error {
	return f.confirmErr
}

func (f *fakeChain) Address() string      { return "treasury-addr" }
func (f *fakeChain) TokenAccount() string { return "treasury-token-acct" }

func (f *fakeChain) SignAndSend(ctx context.Context, rawTxBase64 string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "sig-" + rawTxBase64, nil
}

func (f *fakeChain) TransferLamports(ctx context.Context, to string, lamports int64) (string, error) {
	return "sig", nil
}

func (f *fakeChain) TransferTokens(ctx context.Context, to string, amount int64) (string, error) {
	return "sig", nil
}

func newPurchaser(status *fakeStatus, curve market.Venue, graduated []market.Venue, ch *fakeChain) *market.Purchaser {
	return market.NewPurchaser(
		status, curve, graduated,
		ch, ch, ch,
		"mint", 100_000, 0,
		zerolog.Nop(),
	)
}

func TestPurchase_CurveVenueBeforeGraduation(t *testing.T) {
	curve := &fakeVenue{name: "pumpfun"}
	graduated := &fakeVenue{name: "pumpswap"}
	ch := &fakeChain{balances: []int64{1_000_000, 3_000_000}}

	p := newPurchaser(&fakeStatus{graduated: false}, curve, []market.Venue{graduated}, ch)

	receipt, err := p.Purchase(context.Background(), 30_000_000)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if receipt.VenueName != "pumpfun" {
		t.Errorf("venue: got %q, want pumpfun", receipt.VenueName)
	}
	if receipt.TokensReceived != 2_000_000 {
		t.Errorf("tokens: got %d, want balance delta 2_000_000", receipt.TokensReceived)
	}
	if graduated.called != 0 {
		t.Error("graduated venue should not be tried before graduation")
	}
}

func TestPurchase_GraduatedFallbackOrder(t *testing.T) {
	curve := &fakeVenue{name: "pumpfun"}
	first := &fakeVenue{name: "pumpswap", buildErr: errors.New("pool drained")}
	second := &fakeVenue{name: "jupiter"}
	ch := &fakeChain{balances: []int64{1_000_000, 1_000_000, 2_500_000}}

	p := newPurchaser(&fakeStatus{graduated: true}, curve, []market.Venue{first, second}, ch)

	receipt, err := p.Purchase(context.Background(), 30_000_000)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if receipt.VenueName != "jupiter" {
		t.Errorf("venue: got %q, want jupiter (fallback)", receipt.VenueName)
	}
	if curve.called != 0 {
		t.Error("curve venue should not be tried after graduation")
	}
	if first.called != 1 {
		t.Error("first graduated venue should be tried before falling back")
	}
}

func TestPurchase_AllVenuesFailedAggregatesReasons(t *testing.T) {
	first := &fakeVenue{name: "pumpswap", buildErr: errors.New("pool drained")}
	second := &fakeVenue{name: "jupiter", buildErr: errors.New("quote timeout")}
	ch := &fakeChain{balances: []int64{1_000_000, 1_000_000}}

	p := newPurchaser(&fakeStatus{graduated: true}, &fakeVenue{name: "pumpfun"}, []market.Venue{first, second}, ch)

	_, err := p.Purchase(context.Background(), 30_000_000)
	if err == nil {
		t.Fatal("all venues failing should error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "all venues failed") {
		t.Errorf("error should say all venues failed: %v", err)
	}
	if !strings.Contains(msg, "pumpswap: pool drained") || !strings.Contains(msg, "jupiter: quote timeout") {
		t.Errorf("error should carry each venue's reason: %v", err)
	}
}

func TestPurchase_BalanceReadPerVenueAttempt(t *testing.T) {
	// A first-venue transaction that times out at confirmation can still land
	// on-chain later. The fallback venue must read its own pre-order balance
	// so that late delta is not attributed to its purchase.
	first := &fakeVenue{name: "pumpswap", buildErr: errors.New("pool drained")}
	second := &fakeVenue{name: "jupiter"}
	ch := &fakeChain{balances: []int64{1_000_000, 1_000_500, 3_000_500}}

	p := newPurchaser(&fakeStatus{graduated: true}, &fakeVenue{name: "pumpfun"}, []market.Venue{first, second}, ch)

	receipt, err := p.Purchase(context.Background(), 30_000_000)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if receipt.TokensReceived != 2_000_000 {
		t.Errorf("tokens: got %d, want 2_000_000 measured from the fallback's own read", receipt.TokensReceived)
	}
}

func TestPurchase_ZeroDeltaIsFailure(t *testing.T) {
	// Confirmation landed but the balance never moved: the delta is the only
	// receipt the ledger trusts, so this is a failed purchase.
	curve := &fakeVenue{name: "pumpfun"}
	ch := &fakeChain{balances: []int64{1_000_000, 1_000_000}}

	p := newPurchaser(&fakeStatus{}, curve, nil, ch)

	_, err := p.Purchase(context.Background(), 30_000_000)
	if err == nil {
		t.Fatal("zero balance delta should fail the purchase")
	}
	if !strings.Contains(err.Error(), "no tokens received") {
		t.Errorf("got %v, want no-tokens-received failure", err)
	}
}

func TestPurchase_RejectsNonPositiveAmount(t *testing.T) {
	p := newPurchaser(&fakeStatus{}, &fakeVenue{name: "pumpfun"}, nil, &fakeChain{})

	if _, err := p.Purchase(context.Background(), 0); err == nil {
		t.Error("zero lamports should be rejected")
	}
	if _, err := p.Purchase(context.Background(), -5); err == nil {
		t.Error("negative lamports should be rejected")
	}
}

func TestPurchase_StatusErrorAborts(t *testing.T) {
	curve := &fakeVenue{name: "pumpfun"}
	p := newPurchaser(&fakeStatus{err: errors.New("api down")}, curve, nil, &fakeChain{})

	if _, err := p.Purchase(context.Background(), 30_000_000); err == nil {
		t.Fatal("status failure should abort before any venue call")
	}
	if curve.called != 0 {
		t.Error("no venue should be tried when status is unknown")
	}
}
