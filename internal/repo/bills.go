package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/checkout"
)

// Bills persists bills, bill lines, and payments in Postgres.
type Bills struct {
	Pool *pgxpool.Pool
}

// CreateBill inserts the bill. A bill-number collision maps to
// checkout.ErrDuplicateBillNumber so the orchestrator can retry with a fresh
// number.
func (r Bills) CreateBill(ctx context.Context, payload checkout.BillPayload) (checkout.Bill, error) {
	if err := payload.Validate(); err != nil {
		return checkout.Bill{}, err
	}
	services, err := json.Marshal(payload.AdditionalServices)
	if err != nil {
		return checkout.Bill{}, fmt.Errorf("encode additional services: %w", err)
	}

	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err = r.Pool.QueryRow(ctx, `
		INSERT INTO bills (
			vendor_id, customer_id, customer_name, bill_number,
			subtotal, discount_amount, services_total, grand_total,
			paid_amount, due_amount, status, payment_method,
			coupon_id, coupon_code, additional_services
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id, created_at`,
		pgUUID(payload.VendorID),
		pgUUIDOrNull(payload.CustomerID),
		payload.CustomerName,
		payload.BillNumber,
		payload.Subtotal,
		payload.DiscountAmount,
		payload.ServicesTotal,
		payload.GrandTotal,
		payload.PaidAmount,
		payload.DueAmount,
		string(payload.Status),
		payload.PaymentMethod,
		nullableText(payload.CouponID),
		nullableText(payload.CouponCode),
		services,
	).Scan(&id, &createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return checkout.Bill{}, fmt.Errorf("bill number %s: %w", payload.BillNumber, checkout.ErrDuplicateBillNumber)
		}
		return checkout.Bill{}, fmt.Errorf("insert bill: %w", err)
	}

	return checkout.Bill{
		ID:                 fromPGUUID(id),
		Number:             payload.BillNumber,
		VendorID:           payload.VendorID,
		CustomerID:         payload.CustomerID,
		CustomerName:       payload.CustomerName,
		Subtotal:           payload.Subtotal,
		DiscountAmount:     payload.DiscountAmount,
		ServicesTotal:      payload.ServicesTotal,
		GrandTotal:         payload.GrandTotal,
		PaidAmount:         payload.PaidAmount,
		DueAmount:          payload.DueAmount,
		Status:             payload.Status,
		PaymentMethod:      payload.PaymentMethod,
		CouponCode:         payload.CouponCode,
		AdditionalServices: payload.AdditionalServices,
		CreatedAt:          createdAt.Time,
	}, nil
}

// AddBillItem inserts one bill line.
func (r Bills) AddBillItem(ctx context.Context, payload checkout.BillItemPayload) (checkout.BillItem, error) {
	if err := payload.Validate(); err != nil {
		return checkout.BillItem{}, err
	}
	var id pgtype.UUID
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO bill_items (bill_id, kind, item_id, name, unit_price, qty, line_total)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		pgUUID(payload.BillID),
		string(payload.Kind),
		payload.ItemID,
		payload.Name,
		payload.UnitPrice,
		payload.Qty,
		payload.LineTotal,
	).Scan(&id)
	if err != nil {
		return checkout.BillItem{}, fmt.Errorf("insert bill item: %w", err)
	}
	return checkout.BillItem{
		ID:        fromPGUUID(id),
		BillID:    payload.BillID,
		Kind:      payload.Kind,
		ItemID:    payload.ItemID,
		Name:      payload.Name,
		UnitPrice: payload.UnitPrice,
		Qty:       payload.Qty,
		LineTotal: payload.LineTotal,
	}, nil
}

// RecordPayment inserts the received payment against a bill.
func (r Bills) RecordPayment(ctx context.Context, payload checkout.PaymentPayload) (checkout.Payment, error) {
	if err := payload.Validate(); err != nil {
		return checkout.Payment{}, err
	}
	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO payments (bill_id, vendor_id, method, amount)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`,
		pgUUID(payload.BillID),
		pgUUID(payload.VendorID),
		payload.Method,
		payload.Amount,
	).Scan(&id, &createdAt)
	if err != nil {
		return checkout.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return checkout.Payment{
		ID:        fromPGUUID(id),
		BillID:    payload.BillID,
		VendorID:  payload.VendorID,
		Method:    payload.Method,
		Amount:    payload.Amount,
		CreatedAt: createdAt.Time,
	}, nil
}

func nullableText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
