package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// defaultBookingDurationMin is used for service lines that carry no explicit
// duration.
const defaultBookingDurationMin = 60

// fulfilmentConfirmed is the initial status for orders and bookings created
// from a successful checkout.
const fulfilmentConfirmed = "confirmed"

// Orchestrator drives the submit flow. Bill creation is the point of no
// return: everything before it fails the whole submit, everything after it is
// best-effort and only logged and counted on failure.
type Orchestrator struct {
	Bills       BillStore
	Orders      OrderStore
	Bookings    BookingStore
	Ledger      LedgerStore
	CouponUsage CouponUsageStore
	Events      *events.Bus
	Logger      zerolog.Logger
	Now         func() time.Time
	BillNumber  BillNumberFunc
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) billNumber(now time.Time) string {
	if o.BillNumber != nil {
		return o.BillNumber(now)
	}
	return TimeBillNumber(now)
}

// Submit runs the checkout pipeline for the session and returns the created
// bill. The session transitions to completed on success and to failed when
// the bill itself cannot be created.
func (o *Orchestrator) Submit(ctx context.Context, s *Session) (Bill, error) {
	if o == nil || o.Bills == nil {
		return Bill{}, errors.New("checkout: bill store not configured")
	}
	start := o.now()
	snap, err := s.beginSubmit()
	if err != nil {
		return Bill{}, err
	}

	bill, err := o.createBill(ctx, snap)
	if err != nil {
		s.fail()
		o.countSubmit("failed")
		o.Logger.Error().Err(err).
			Str("session_id", snap.ID.String()).
			Msg("bill creation failed, checkout aborted")
		return Bill{}, fmt.Errorf("create bill: %w", err)
	}

	logger := o.Logger.With().
		Str("session_id", snap.ID.String()).
		Str("bill_id", bill.ID.String()).
		Str("bill_number", bill.Number).
		Logger()

	o.recordTail(ctx, logger, snap, bill)

	s.complete(bill)
	o.countSubmit("completed")
	o.observeDuration(o.now().Sub(start))
	logger.Info().
		Int64("grand_total", bill.GrandTotal).
		Str("status", string(bill.Status)).
		Msg("checkout completed")
	return bill, nil
}

func (o *Orchestrator) createBill(ctx context.Context, snap Snapshot) (Bill, error) {
	totals := snap.Totals
	paid := pricing.ClampTendered(snap.Payment.TenderedAmount, totals.GrandTotal)
	status := pricing.Classify(snap.Payment.TenderedAmount, totals.GrandTotal)

	payload := BillPayload{
		VendorID:           snap.VendorID,
		CustomerID:         snap.Customer.ID,
		CustomerName:       snap.Customer.Name,
		Subtotal:           totals.Subtotal,
		DiscountAmount:     totals.DiscountAmount,
		ServicesTotal:      totals.ServicesTotal,
		GrandTotal:         totals.GrandTotal,
		PaidAmount:         paid,
		DueAmount:          totals.GrandTotal - paid,
		Status:             status,
		PaymentMethod:      snap.Payment.Method,
		CouponID:           snap.Discount.CouponID,
		CouponCode:         snap.Discount.CouponCode,
		AdditionalServices: snap.Services,
	}

	payload.BillNumber = o.billNumber(o.now())
	if err := payload.Validate(); err != nil {
		return Bill{}, err
	}
	bill, err := o.Bills.CreateBill(ctx, payload)
	if errors.Is(err, ErrDuplicateBillNumber) {
		payload.BillNumber = o.billNumber(o.now())
		bill, err = o.Bills.CreateBill(ctx, payload)
	}
	return bill, err
}

// recordTail runs every post-bill step. Failures here never undo the bill.
func (o *Orchestrator) recordTail(ctx context.Context, logger zerolog.Logger, snap Snapshot, bill Bill) {
	var degraded []string
	var productTotal pricing.Money
	hasProducts := false
	for _, line := range snap.Lines {
		if line.Kind == pricing.KindProduct {
			productTotal += line.LineTotal()
			hasProducts = true
		}
	}

	var order Order
	orderOK := false
	if hasProducts {
		o.bestEffort(logger, &degraded, "create_order", func() error {
			if o.Orders == nil {
				return nil
			}
			created, err := o.Orders.CreateOrder(ctx, OrderPayload{
				VendorID:      snap.VendorID,
				CustomerID:    snap.Customer.ID,
				BillID:        bill.ID,
				Status:        fulfilmentConfirmed,
				PaymentStatus: bill.Status,
				Subtotal:      productTotal,
				Total:         productTotal,
			})
			if err != nil {
				return err
			}
			order = created
			orderOK = true
			return nil
		})
	}

	o.bestEffort(logger, &degraded, "create_bookings", func() error {
		if o.Bookings == nil {
			return nil
		}
		var joined error
		for _, line := range snap.Lines {
			if line.Kind != pricing.KindService {
				continue
			}
			duration := line.DurationMin
			if duration <= 0 {
				duration = defaultBookingDurationMin
			}
			payload := BookingPayload{
				VendorID:      snap.VendorID,
				CustomerID:    snap.Customer.ID,
				BillID:        bill.ID,
				ServiceID:     line.ItemID,
				ServiceName:   line.Name,
				Status:        fulfilmentConfirmed,
				PaymentStatus: bill.Status,
				TotalAmount:   line.LineTotal(),
				StartTime:     o.now(),
				DurationMin:   duration,
			}
			booking, err := o.Bookings.CreateBooking(ctx, payload)
			if err != nil {
				joined = errors.Join(joined, fmt.Errorf("booking for %s: %w", line.ItemID, err))
				continue
			}
			o.emit(ctx, logger, events.TopicBookingCreated, booking.ID, map[string]any{
				"billId":      bill.ID,
				"serviceId":   booking.ServiceID,
				"serviceName": booking.ServiceName,
				"startTime":   booking.StartTime,
				"endTime":     booking.EndTime,
			})
		}
		return joined
	})

	o.bestEffort(logger, &degraded, "record_items", func() error {
		var joined error
		for _, line := range snap.Lines {
			if _, err := o.Bills.AddBillItem(ctx, BillItemPayload{
				BillID:    bill.ID,
				Kind:      line.Kind,
				ItemID:    line.ItemID,
				Name:      line.Name,
				UnitPrice: line.UnitPrice,
				Qty:       line.Qty,
				LineTotal: line.LineTotal(),
			}); err != nil {
				joined = errors.Join(joined, fmt.Errorf("bill item %s: %w", line.ItemID, err))
			}
			if line.Kind != pricing.KindProduct || !orderOK || o.Orders == nil {
				continue
			}
			if _, err := o.Orders.AddOrderItem(ctx, OrderItemPayload{
				OrderID:   order.ID,
				Kind:      line.Kind,
				ItemID:    line.ItemID,
				Name:      line.Name,
				UnitPrice: line.UnitPrice,
				Qty:       line.Qty,
				LineTotal: line.LineTotal(),
			}); err != nil {
				joined = errors.Join(joined, fmt.Errorf("order item %s: %w", line.ItemID, err))
			}
		}
		return joined
	})

	if bill.PaidAmount > 0 {
		o.bestEffort(logger, &degraded, "record_payment", func() error {
			_, err := o.Bills.RecordPayment(ctx, PaymentPayload{
				BillID:   bill.ID,
				VendorID: snap.VendorID,
				Method:   snap.Payment.Method,
				Amount:   bill.PaidAmount,
			})
			return err
		})
	}

	if snap.Discount.Kind == pricing.DiscountCoupon && !snap.Customer.WalkIn() {
		o.bestEffort(logger, &degraded, "record_coupon_usage", func() error {
			if o.CouponUsage == nil {
				return nil
			}
			couponID, err := uuid.Parse(snap.Discount.CouponID)
			if err != nil {
				return fmt.Errorf("parse coupon id: %w", err)
			}
			_, err = o.CouponUsage.RecordUsage(ctx, CouponUsagePayload{
				CouponID:   couponID,
				VendorID:   snap.VendorID,
				CustomerID: snap.Customer.ID,
				BillID:     bill.ID,
				Code:       snap.Discount.CouponCode,
			})
			return err
		})
	}

	if !snap.Customer.WalkIn() {
		o.bestEffort(logger, &degraded, "record_ledger", func() error {
			if o.Ledger == nil {
				return nil
			}
			var joined error
			if bill.PaidAmount > 0 {
				tx, err := o.Ledger.RecordTransaction(ctx, LedgerPayload{
					VendorID:   snap.VendorID,
					CustomerID: snap.Customer.ID,
					BillID:     bill.ID,
					Direction:  LedgerIn,
					Amount:     bill.PaidAmount,
					Note:       "payment on bill " + bill.Number,
				})
				if err != nil {
					joined = errors.Join(joined, err)
				} else {
					o.emit(ctx, logger, events.TopicLedgerRecorded, tx.ID, map[string]any{
						"billId": bill.ID, "direction": tx.Direction, "amount": tx.Amount,
					})
				}
			}
			if bill.DueAmount > 0 {
				tx, err := o.Ledger.RecordTransaction(ctx, LedgerPayload{
					VendorID:   snap.VendorID,
					CustomerID: snap.Customer.ID,
					BillID:     bill.ID,
					Direction:  LedgerOut,
					Amount:     bill.DueAmount,
					Note:       "outstanding balance on bill " + bill.Number,
				})
				if err != nil {
					joined = errors.Join(joined, err)
				} else {
					o.emit(ctx, logger, events.TopicLedgerRecorded, tx.ID, map[string]any{
						"billId": bill.ID, "direction": tx.Direction, "amount": tx.Amount,
					})
				}
			}
			return joined
		})
	}

	o.emit(ctx, logger, events.TopicBillCompleted, bill.ID, map[string]any{
		"billNumber": bill.Number,
		"vendorId":   bill.VendorID,
		"grandTotal": bill.GrandTotal,
		"paidAmount": bill.PaidAmount,
		"dueAmount":  bill.DueAmount,
		"status":     bill.Status,
	})

	if len(degraded) > 0 {
		o.emit(ctx, logger, events.TopicCheckoutDegrade, bill.ID, map[string]any{
			"billNumber":  bill.Number,
			"failedSteps": degraded,
		})
	}
}

func (o *Orchestrator) bestEffort(logger zerolog.Logger, degraded *[]string, step string, fn func() error) {
	if err := fn(); err != nil {
		logger.Error().Err(err).Str("step", step).Msg("checkout step failed")
		*degraded = append(*degraded, step)
		if obs.CheckoutStepFailures != nil {
			obs.CheckoutStepFailures.WithLabelValues(step).Inc()
		}
	}
}

func (o *Orchestrator) emit(ctx context.Context, logger zerolog.Logger, topic string, aggregateID uuid.UUID, payload any) {
	if o.Events == nil {
		return
	}
	if _, err := o.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("event emission degraded")
	}
}

func (o *Orchestrator) countSubmit(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}

func (o *Orchestrator) observeDuration(d time.Duration) {
	if obs.CheckoutDuration != nil {
		obs.CheckoutDuration.Observe(float64(d.Milliseconds()))
	}
}
