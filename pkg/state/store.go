// Package state persists the monitor's tier observations, the earnings
// history, and redeemed payment nonces in a single SQLite database.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/solvent-ai/solvent/pkg/models"
)

// Store is the SQLite-backed collaborator store.
type Store struct {
	db *sql.DB
}

const createObservations = `
CREATE TABLE IF NOT EXISTS tier_observations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tier TEXT NOT NULL,
	balance TEXT NOT NULL,
	changed INTEGER NOT NULL,
	oracle_degraded INTEGER NOT NULL,
	health_ok INTEGER NOT NULL,
	observed_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_time ON tier_observations(observed_at);
`

const createEarnings = `
CREATE TABLE IF NOT EXISTS earnings (
	id TEXT PRIMARY KEY,
	service TEXT NOT NULL,
	amount TEXT NOT NULL,
	recorded_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_earnings_service ON earnings(service);
`

const createNonces = `
CREATE TABLE IF NOT EXISTS redeemed_nonces (
	nonce TEXT PRIMARY KEY,
	redeemed_at DATETIME NOT NULL
);
`

// New opens the database and runs auto-migration.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	for _, schema := range []string{createObservations, createEarnings, createNonces} {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate state db: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// LastObservation returns the most recent persisted tier and financial state.
// ok is false when no observation has ever been recorded.
func (s *Store) LastObservation(ctx context.Context) (tier models.Tier, state models.FinancialState, ok bool, err error) {
	var balance string
	row := s.db.QueryRowContext(ctx,
		`SELECT tier, balance, observed_at FROM tier_observations ORDER BY id DESC LIMIT 1`)
	if err = row.Scan(&tier, &balance, &state.ObservedAt); err != nil {
		if err == sql.ErrNoRows {
			return "", models.FinancialState{}, false, nil
		}
		return "", models.FinancialState{}, false, fmt.Errorf("load last observation: %w", err)
	}
	state.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return "", models.FinancialState{}, false, fmt.Errorf("parse stored balance: %w", err)
	}
	return tier, state, true, nil
}

// LastObservationDetail returns the full most recent observation row,
// including degraded-confidence and health flags, for operator views.
func (s *Store) LastObservationDetail(ctx context.Context) (tr models.TierTransition, ok bool, err error) {
	var (
		balance  string
		degraded int
		healthy  int
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT tier, balance, oracle_degraded, health_ok, observed_at
		 FROM tier_observations ORDER BY id DESC LIMIT 1`)
	if err = row.Scan(&tr.Current, &balance, &degraded, &healthy, &tr.State.ObservedAt); err != nil {
		if err == sql.ErrNoRows {
			return models.TierTransition{}, false, nil
		}
		return models.TierTransition{}, false, fmt.Errorf("load last observation: %w", err)
	}
	tr.State.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return models.TierTransition{}, false, fmt.Errorf("parse stored balance: %w", err)
	}
	tr.OracleDegraded = degraded != 0
	tr.HealthOK = healthy != 0
	return tr, true, nil
}

// SaveObservation appends one poll result. Called unconditionally on every
// poll so the last-observed timestamp stays fresh even without a change.
func (s *Store) SaveObservation(ctx context.Context, tr models.TierTransition) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tier_observations (tier, balance, changed, oracle_degraded, health_ok, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tr.Current, tr.State.Balance.String(), boolInt(tr.Changed),
		boolInt(tr.OracleDegraded), boolInt(tr.HealthOK), tr.State.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("save observation: %w", err)
	}
	return nil
}

// AppendEarning stores one confirmed payment row.
func (s *Store) AppendEarning(ctx context.Context, e models.EarningEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO earnings (id, service, amount, recorded_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.Service, e.Amount.String(), e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("append earning: %w", err)
	}
	return nil
}

// EarningsTotals aggregates the persisted earnings table.
func (s *Store) EarningsTotals(ctx context.Context) (models.EarningsSnapshot, error) {
	snap := models.EarningsSnapshot{
		ByService: make(map[string]decimal.Decimal),
		Total:     decimal.Zero,
	}

	rows, err := s.db.QueryContext(ctx, `SELECT service, amount FROM earnings`)
	if err != nil {
		return snap, fmt.Errorf("earnings totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var service, amount string
		if err := rows.Scan(&service, &amount); err != nil {
			return snap, fmt.Errorf("scan earning: %w", err)
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return snap, fmt.Errorf("parse stored amount: %w", err)
		}
		snap.ByService[service] = snap.ByService[service].Add(amt)
		snap.Total = snap.Total.Add(amt)
	}
	return snap, rows.Err()
}

// Redeem marks a payment nonce as spent. It returns false when the nonce was
// already redeemed; the insert-or-ignore makes the check-and-set atomic with
// respect to concurrent requests.
func (s *Store) Redeem(ctx context.Context, nonce string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO redeemed_nonces (nonce, redeemed_at) VALUES (?, ?)
		 ON CONFLICT(nonce) DO NOTHING`,
		nonce, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("redeem nonce: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("redeem nonce: %w", err)
	}
	return n == 1, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
