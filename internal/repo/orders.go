package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/checkout"
)

// Orders persists fulfilment orders in Postgres.
type Orders struct {
	Pool *pgxpool.Pool
}

// CreateOrder inserts the order that mirrors a bill.
func (r Orders) CreateOrder(ctx context.Context, payload checkout.OrderPayload) (checkout.Order, error) {
	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO orders (vendor_id, customer_id, bill_id, status, payment_status, subtotal, total)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`,
		pgUUID(payload.VendorID),
		pgUUIDOrNull(payload.CustomerID),
		pgUUID(payload.BillID),
		payload.Status,
		string(payload.PaymentStatus),
		payload.Subtotal,
		payload.Total,
	).Scan(&id, &createdAt)
	if err != nil {
		return checkout.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return checkout.Order{
		ID:            fromPGUUID(id),
		VendorID:      payload.VendorID,
		CustomerID:    payload.CustomerID,
		BillID:        payload.BillID,
		Status:        payload.Status,
		PaymentStatus: payload.PaymentStatus,
		Subtotal:      payload.Subtotal,
		Total:         payload.Total,
		CreatedAt:     createdAt.Time,
	}, nil
}

// AddOrderItem inserts one order line.
func (r Orders) AddOrderItem(ctx context.Context, payload checkout.OrderItemPayload) (checkout.OrderItem, error) {
	var id pgtype.UUID
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO order_items (order_id, kind, item_id, name, unit_price, qty, line_total)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		pgUUID(payload.OrderID),
		string(payload.Kind),
		payload.ItemID,
		payload.Name,
		payload.UnitPrice,
		payload.Qty,
		payload.LineTotal,
	).Scan(&id)
	if err != nil {
		return checkout.OrderItem{}, fmt.Errorf("insert order item: %w", err)
	}
	return checkout.OrderItem{
		ID:      fromPGUUID(id),
		OrderID: payload.OrderID,
		ItemID:  payload.ItemID,
		Name:    payload.Name,
		Qty:     payload.Qty,
	}, nil
}
