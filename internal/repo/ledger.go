package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/checkout"
)

// Ledger persists customer ledger movements in Postgres.
type Ledger struct {
	Pool *pgxpool.Pool
}

// RecordTransaction inserts one ledger entry.
func (r Ledger) RecordTransaction(ctx context.Context, payload checkout.LedgerPayload) (checkout.LedgerTransaction, error) {
	if err := payload.Validate(); err != nil {
		return checkout.LedgerTransaction{}, err
	}
	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO ledger_transactions (vendor_id, customer_id, bill_id, direction, amount, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at`,
		pgUUID(payload.VendorID),
		pgUUID(payload.CustomerID),
		pgUUID(payload.BillID),
		string(payload.Direction),
		payload.Amount,
		payload.Note,
	).Scan(&id, &createdAt)
	if err != nil {
		return checkout.LedgerTransaction{}, fmt.Errorf("insert ledger transaction: %w", err)
	}
	return checkout.LedgerTransaction{
		ID:         fromPGUUID(id),
		VendorID:   payload.VendorID,
		CustomerID: payload.CustomerID,
		BillID:     payload.BillID,
		Direction:  payload.Direction,
		Amount:     payload.Amount,
		Note:       payload.Note,
		CreatedAt:  createdAt.Time,
	}, nil
}
