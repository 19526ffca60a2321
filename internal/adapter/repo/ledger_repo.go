package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreditLedgerPG implements domain.CreditLedger with a conditional balance
// update plus an append-only transaction row, in one database transaction.
type CreditLedgerPG struct {
	pool *pgxpool.Pool
}

// NewCreditLedger creates a Postgres-backed credit ledger.
func NewCreditLedger(pool *pgxpool.Pool) *CreditLedgerPG {
	return &CreditLedgerPG{pool: pool}
}

// Debit atomically subtracts amount from the user's balance. It returns
// (false, nil) when the balance is insufficient, distinct from a transport
// or database error.
func (l *CreditLedgerPG) Debit(ctx context.Context, userID string, amount int) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("ledger: invalid debit amount %d", amount)
	}
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ledger: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
UPDATE users
SET credits = credits - $2
WHERE id = $1 AND credits >= $2;
`, userID, amount)
	if err != nil {
		return false, fmt.Errorf("ledger: debit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO credit_transactions (user_id, amount, kind)
VALUES ($1, $2, 'debit');
`, userID, -amount); err != nil {
		return false, fmt.Errorf("ledger: record transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("ledger: commit: %w", err)
	}
	return true, nil
}
