package ingestion

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentWire is the JSON body published by the payment watcher. Amount is a
// decimal SOL string ("0.03"); it is converted to lamports exactly at this
// boundary and integers only from here on.
type PaymentWire struct {
	Reference    string `json:"reference"`
	PayerID      int64  `json:"payer_id"`
	Amount       string `json:"amount"`
	PayerAddress string `json:"payer_address"`
	Signature    string `json:"signature"`
	Timestamp    int64  `json:"timestamp"`
}

// ParsedPayment is the validated, integer-denominated payment.
type ParsedPayment struct {
	Reference    string
	PayerID      int64
	Lamports     int64
	PayerAddress string
	Signature    string
	Timestamp    int64
}

var lamportsPerSol = decimal.NewFromInt(1_000_000_000)

// ParsePayment decodes and validates a payment notification.
func ParsePayment(data []byte) (*ParsedPayment, error) {
	var wire PaymentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}

	if wire.Reference == "" {
		return nil, fmt.Errorf("payment missing reference")
	}
	if wire.PayerID == 0 {
		return nil, fmt.Errorf("payment missing payer id")
	}

	lamports, err := SolToLamports(wire.Amount)
	if err != nil {
		return nil, err
	}
	if lamports <= 0 {
		return nil, fmt.Errorf("non-positive payment amount %q", wire.Amount)
	}

	return &ParsedPayment{
		Reference:    wire.Reference,
		PayerID:      wire.PayerID,
		Lamports:     lamports,
		PayerAddress: wire.PayerAddress,
		Signature:    wire.Signature,
		Timestamp:    wire.Timestamp,
	}, nil
}

// SolToLamports converts a decimal SOL string to lamports. Sub-lamport
// precision is rejected rather than rounded: the watcher reports on-chain
// amounts, which are always whole lamports.
func SolToLamports(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q: %w", amount, err)
	}

	scaled := d.Mul(lamportsPerSol)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-lamport precision", amount)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q overflows lamports", amount)
	}
	return scaled.IntPart(), nil
}
