package query

import (
	"context"
	"database/sql"
	"time"

	"github.com/01Clarian/xposure/internal/observability"
)

// Service answers read-side queries from the projection tables. Results
// carry the projection watermark so callers can judge freshness against the
// engine sequence.
type Service struct {
	db      *sql.DB
	metrics *observability.Metrics
}

func NewService(db *sql.DB, metrics *observability.Metrics) *Service {
	return &Service{db: db, metrics: metrics}
}

// Standing is one row of the current round's leaderboard.
type Standing struct {
	PayerID     int64  `json:"payer_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	TierName    string `json:"tier_name"`
	Votes       int    `json:"votes"`
}

// PayoutRecord is one credited reward.
type PayoutRecord struct {
	Cycle     int64     `json:"cycle"`
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	Rank      *int      `json:"rank,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Standings returns the leaderboard for a cycle, most votes first.
func (s *Service) Standings(ctx context.Context, cycle int64) ([]Standing, int64, error) {
	start := time.Now()
	defer s.observe("standings", start)

	rows, err := s.db.QueryContext(ctx, `
		SELECT payer_id, display_name, role, tier_name, votes
		FROM projections.standings
		WHERE cycle = $1
		ORDER BY votes DESC, sequence ASC
	`, cycle)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var standings []Standing
	for rows.Next() {
		var st Standing
		if err := rows.Scan(&st.PayerID, &st.DisplayName, &st.Role, &st.TierName, &st.Votes); err != nil {
			return nil, 0, err
		}
		standings = append(standings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	watermark, err := s.Watermark(ctx)
	if err != nil {
		return nil, 0, err
	}
	return standings, watermark, nil
}

// PayoutHistory returns a payer's credited rewards, newest first.
func (s *Service) PayoutHistory(ctx context.Context, payerID int64, limit int) ([]PayoutRecord, int64, error) {
	start := time.Now()
	defer s.observe("payout_history", start)

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle, kind, amount, rank, created_at
		FROM projections.payout_history
		WHERE payer_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, payerID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []PayoutRecord
	for rows.Next() {
		var r PayoutRecord
		if err := rows.Scan(&r.Cycle, &r.Kind, &r.Amount, &r.Rank, &r.CreatedAt); err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	watermark, err := s.Watermark(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, watermark, nil
}

// Watermark returns the highest sequence the projections have applied.
func (s *Service) Watermark(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT sequence FROM projections.watermarks WHERE projection = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return seq.Int64, nil
}

func (s *Service) observe(endpoint string, start time.Time) {
	if s.metrics != nil {
		s.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
