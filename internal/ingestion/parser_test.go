package ingestion_test

import (
	"testing"

	"github.com/01Clarian/xposure/internal/ingestion"
)

func TestParsePayment_Valid(t *testing.T) {
	data := []byte(`{
		"reference": "abc-123",
		"payer_id": 555,
		"amount": "0.03",
		"payer_address": "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		"signature": "5sig",
		"timestamp": 1700000000
	}`)

	p, err := ingestion.ParsePayment(data)
	if err != nil {
		t.Fatalf("ParsePayment: %v", err)
	}
	if p.Reference != "abc-123" || p.PayerID != 555 {
		t.Errorf("identity fields wrong: %+v", p)
	}
	if p.Lamports != 30_000_000 {
		t.Errorf("lamports: got %d, want 30_000_000", p.Lamports)
	}
}

func TestParsePayment_Rejections(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{{`},
		{"missing reference", `{"payer_id": 1, "amount": "0.03"}`},
		{"missing payer", `{"reference": "r", "amount": "0.03"}`},
		{"zero amount", `{"reference": "r", "payer_id": 1, "amount": "0"}`},
		{"negative amount", `{"reference": "r", "payer_id": 1, "amount": "-0.5"}`},
		{"garbage amount", `{"reference": "r", "payer_id": 1, "amount": "lots"}`},
	}

	for _, c := range cases {
		if _, err := ingestion.ParsePayment([]byte(c.data)); err == nil {
			t.Errorf("%s: should be rejected", c.name)
		}
	}
}

func TestSolToLamports_Exact(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"0.03", 30_000_000},
		{"1", 1_000_000_000},
		{"0.000000001", 1},
		{"5.5", 5_500_000_000},
	}

	for _, c := range cases {
		got, err := ingestion.SolToLamports(c.amount)
		if err != nil {
			t.Fatalf("SolToLamports(%q): %v", c.amount, err)
		}
		if got != c.want {
			t.Errorf("SolToLamports(%q): got %d, want %d", c.amount, got, c.want)
		}
	}
}

func TestSolToLamports_RejectsSubLamport(t *testing.T) {
	if _, err := ingestion.SolToLamports("0.0000000001"); err == nil {
		t.Error("sub-lamport precision should be rejected, not rounded")
	}
}

func TestSolToLamports_RejectsOverflow(t *testing.T) {
	if _, err := ingestion.SolToLamports("99999999999999999999"); err == nil {
		t.Error("overflowing amount should be rejected")
	}
}
