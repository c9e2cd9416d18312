package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/checkout"
)

// Bookings persists service bookings in Postgres.
type Bookings struct {
	Pool *pgxpool.Pool
}

// CreateBooking inserts a booking derived from a billed service line.
func (r Bookings) CreateBooking(ctx context.Context, payload checkout.BookingPayload) (checkout.Booking, error) {
	if err := payload.Validate(); err != nil {
		return checkout.Booking{}, err
	}
	endTime := payload.EndTime()
	var id pgtype.UUID
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO bookings (vendor_id, customer_id, bill_id, service_id, service_name, status, payment_status, total_amount, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`,
		pgUUID(payload.VendorID),
		pgUUIDOrNull(payload.CustomerID),
		pgUUID(payload.BillID),
		payload.ServiceID,
		payload.ServiceName,
		payload.Status,
		string(payload.PaymentStatus),
		payload.TotalAmount,
		payload.StartTime,
		endTime,
	).Scan(&id)
	if err != nil {
		return checkout.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	return checkout.Booking{
		ID:            fromPGUUID(id),
		VendorID:      payload.VendorID,
		CustomerID:    payload.CustomerID,
		BillID:        payload.BillID,
		ServiceID:     payload.ServiceID,
		ServiceName:   payload.ServiceName,
		Status:        payload.Status,
		PaymentStatus: payload.PaymentStatus,
		TotalAmount:   payload.TotalAmount,
		StartTime:     payload.StartTime,
		EndTime:       endTime,
	}, nil
}
