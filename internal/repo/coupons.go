package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/coupon"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrCouponNotFound is returned when no coupon matches the code for the vendor.
var ErrCouponNotFound = errors.New("coupon not found")

// Coupons resolves coupon rules and records redemptions in Postgres.
type Coupons struct {
	Pool *pgxpool.Pool
}

// GetByCode loads the coupon rule scoped to the vendor.
func (r Coupons) GetByCode(ctx context.Context, vendorID uuid.UUID, code string) (coupon.Rule, error) {
	var (
		id         pgtype.UUID
		vendor     pgtype.UUID
		mode       string
		value      int64
		minSub     int64
		usageLimit pgtype.Int4
		usedCount  int32
		validFrom  pgtype.Timestamptz
		validTo    pgtype.Timestamptz
		active     bool
	)
	err := r.Pool.QueryRow(ctx, `
		SELECT id, vendor_id, mode, value, min_subtotal, usage_limit, used_count, valid_from, valid_to, active
		FROM coupons
		WHERE vendor_id = $1 AND code = $2`,
		pgUUID(vendorID), code,
	).Scan(&id, &vendor, &mode, &value, &minSub, &usageLimit, &usedCount, &validFrom, &validTo, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return coupon.Rule{}, fmt.Errorf("code %s: %w", code, ErrCouponNotFound)
	}
	if err != nil {
		return coupon.Rule{}, fmt.Errorf("select coupon: %w", err)
	}

	rule := coupon.Rule{
		ID:          fromPGUUID(id),
		VendorID:    fromPGUUID(vendor),
		Code:        code,
		Mode:        pricing.DiscountMode(mode),
		Value:       value,
		MinSubtotal: minSub,
		UsedCount:   usedCount,
		Active:      active,
	}
	if usageLimit.Valid {
		limit := usageLimit.Int32
		rule.UsageLimit = &limit
	}
	if validFrom.Valid {
		from := validFrom.Time
		rule.ValidFrom = &from
	}
	if validTo.Valid {
		to := validTo.Time
		rule.ValidTo = &to
	}
	return rule, nil
}

// RecordUsage inserts the redemption and bumps the coupon's usage counter in
// one transaction.
func (r Coupons) RecordUsage(ctx context.Context, payload checkout.CouponUsagePayload) (checkout.CouponUsage, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return checkout.CouponUsage{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		id     pgtype.UUID
		usedAt pgtype.Timestamptz
	)
	err = tx.QueryRow(ctx, `
		INSERT INTO coupon_usages (coupon_id, vendor_id, customer_id, bill_id, code)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, used_at`,
		pgUUID(payload.CouponID),
		pgUUID(payload.VendorID),
		pgUUID(payload.CustomerID),
		pgUUID(payload.BillID),
		payload.Code,
	).Scan(&id, &usedAt)
	if err != nil {
		return checkout.CouponUsage{}, fmt.Errorf("insert coupon usage: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`,
		pgUUID(payload.CouponID),
	); err != nil {
		return checkout.CouponUsage{}, fmt.Errorf("bump coupon usage: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return checkout.CouponUsage{}, fmt.Errorf("commit: %w", err)
	}

	return checkout.CouponUsage{
		ID:         fromPGUUID(id),
		CouponID:   payload.CouponID,
		CustomerID: payload.CustomerID,
		BillID:     payload.BillID,
		Code:       payload.Code,
		UsedAt:     usedAt.Time,
	}, nil
}
