package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

type fakeStores struct {
	bills        []BillPayload
	billItems    []BillItemPayload
	payments     []PaymentPayload
	orders       []OrderPayload
	orderItems   []OrderItemPayload
	bookings     []BookingPayload
	ledger       []LedgerPayload
	couponUsages []CouponUsagePayload
	eventsSeen   []events.Event

	billErrs   []error
	bookingErr error
	orderErr   error
}

func (f *fakeStores) CreateBill(_ context.Context, p BillPayload) (Bill, error) {
	if len(f.billErrs) > 0 {
		err := f.billErrs[0]
		f.billErrs = f.billErrs[1:]
		if err != nil {
			return Bill{}, err
		}
	}
	f.bills = append(f.bills, p)
	return Bill{
		ID:                 uuid.New(),
		Number:             p.BillNumber,
		VendorID:           p.VendorID,
		CustomerID:         p.CustomerID,
		CustomerName:       p.CustomerName,
		Subtotal:           p.Subtotal,
		DiscountAmount:     p.DiscountAmount,
		ServicesTotal:      p.ServicesTotal,
		GrandTotal:         p.GrandTotal,
		PaidAmount:         p.PaidAmount,
		DueAmount:          p.DueAmount,
		Status:             p.Status,
		PaymentMethod:      p.PaymentMethod,
		CouponCode:         p.CouponCode,
		AdditionalServices: p.AdditionalServices,
		CreatedAt:          time.Now(),
	}, nil
}

func (f *fakeStores) AddBillItem(_ context.Context, p BillItemPayload) (BillItem, error) {
	f.billItems = append(f.billItems, p)
	return BillItem{ID: uuid.New(), BillID: p.BillID, ItemID: p.ItemID}, nil
}

func (f *fakeStores) RecordPayment(_ context.Context, p PaymentPayload) (Payment, error) {
	f.payments = append(f.payments, p)
	return Payment{ID: uuid.New(), BillID: p.BillID, Amount: p.Amount}, nil
}

func (f *fakeStores) CreateOrder(_ context.Context, p OrderPayload) (Order, error) {
	if f.orderErr != nil {
		return Order{}, f.orderErr
	}
	f.orders = append(f.orders, p)
	return Order{ID: uuid.New(), BillID: p.BillID, Status: p.Status}, nil
}

func (f *fakeStores) AddOrderItem(_ context.Context, p OrderItemPayload) (OrderItem, error) {
	f.orderItems = append(f.orderItems, p)
	return OrderItem{ID: uuid.New(), OrderID: p.OrderID, ItemID: p.ItemID}, nil
}

func (f *fakeStores) CreateBooking(_ context.Context, p BookingPayload) (Booking, error) {
	if f.bookingErr != nil {
		return Booking{}, f.bookingErr
	}
	f.bookings = append(f.bookings, p)
	return Booking{
		ID:            uuid.New(),
		BillID:        p.BillID,
		ServiceID:     p.ServiceID,
		ServiceName:   p.ServiceName,
		Status:        p.Status,
		PaymentStatus: p.PaymentStatus,
		TotalAmount:   p.TotalAmount,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime(),
	}, nil
}

func (f *fakeStores) RecordTransaction(_ context.Context, p LedgerPayload) (LedgerTransaction, error) {
	if err := p.Validate(); err != nil {
		return LedgerTransaction{}, err
	}
	f.ledger = append(f.ledger, p)
	return LedgerTransaction{ID: uuid.New(), BillID: p.BillID, Direction: p.Direction, Amount: p.Amount}, nil
}

func (f *fakeStores) RecordUsage(_ context.Context, p CouponUsagePayload) (CouponUsage, error) {
	f.couponUsages = append(f.couponUsages, p)
	return CouponUsage{ID: uuid.New(), CouponID: p.CouponID, BillID: p.BillID, Code: p.Code}, nil
}

func (f *fakeStores) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	f.eventsSeen = append(f.eventsSeen, ev)
	return ev, nil
}

func newOrchestrator(f *fakeStores) *Orchestrator {
	return &Orchestrator{
		Bills:       f,
		Orders:      f,
		Bookings:    f,
		Ledger:      f,
		CouponUsage: f,
		Events:      &events.Bus{Store: f},
		Logger:      zerolog.Nop(),
	}
}

func registeredSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(uuid.New(), Customer{ID: uuid.New(), Name: "Budi"})
	require.NoError(t, s.AddItem(pricing.CartLine{
		Kind: pricing.KindProduct, ItemID: "sku-1", Name: "Engine Oil", UnitPrice: 100_00, Qty: 2,
	}, cart.UnlimitedStock))
	require.NoError(t, s.ApplyManualDiscount(pricing.ModePercentage, 10))
	_, err := s.AddService("Install", "fit and balance", 50_00)
	require.NoError(t, err)
	return s
}

func TestSubmitPartialPayment(t *testing.T) {
	f := &fakeStores{}
	o := newOrchestrator(f)
	s := registeredSession(t)
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 100_00}))

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)

	require.Equal(t, int64(200_00), bill.Subtotal)
	require.Equal(t, int64(20_00), bill.DiscountAmount)
	require.Equal(t, int64(59_00), bill.ServicesTotal)
	require.Equal(t, int64(239_00), bill.GrandTotal)
	require.Equal(t, int64(100_00), bill.PaidAmount)
	require.Equal(t, int64(139_00), bill.DueAmount)
	require.Equal(t, pricing.StatusPartial, bill.Status)
	require.Equal(t, bill.GrandTotal, bill.PaidAmount+bill.DueAmount)

	require.Len(t, f.orders, 1)
	require.Len(t, f.billItems, 1)
	require.Len(t, f.orderItems, 1)
	require.Len(t, f.payments, 1)
	require.Equal(t, int64(100_00), f.payments[0].Amount)

	require.Len(t, f.ledger, 2)
	require.Equal(t, LedgerIn, f.ledger[0].Direction)
	require.Equal(t, int64(100_00), f.ledger[0].Amount)
	require.Equal(t, LedgerOut, f.ledger[1].Direction)
	require.Equal(t, int64(139_00), f.ledger[1].Amount)

	snap := s.Snapshot()
	require.Equal(t, StateCompleted, snap.State)
	got, ok := s.Bill()
	require.True(t, ok)
	require.Equal(t, bill.Number, got.Number)
}

func TestSubmitCreditOnly(t *testing.T) {
	f := &fakeStores{}
	o := newOrchestrator(f)
	s := registeredSession(t)
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "credit", TenderedAmount: 0}))

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)

	require.Equal(t, pricing.StatusCredit, bill.Status)
	require.Equal(t, int64(0), bill.PaidAmount)
	require.Equal(t, int64(239_00), bill.DueAmount)
	require.Empty(t, f.payments)
	require.Len(t, f.ledger, 1)
	require.Equal(t, LedgerOut, f.ledger[0].Direction)
	require.Equal(t, int64(239_00), f.ledger[0].Amount)
}

func TestSubmitOverpayClampsToTotal(t *testing.T) {
	f := &fakeStores{}
	o := newOrchestrator(f)
	s := registeredSession(t)
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 300_00}))

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, pricing.StatusPaid, bill.Status)
	require.Equal(t, int64(239_00), bill.PaidAmount)
	require.Equal(t, int64(0), bill.DueAmount)
	require.Len(t, f.ledger, 1)
	require.Equal(t, LedgerIn, f.ledger[0].Direction)
}

func TestSubmitWalkInSkipsLedgerAndCouponUsage(t *testing.T) {
	f := &fakeStores{}
	o := newOrchestrator(f)
	s := NewSession(uuid.New(), Customer{Name: "Walk-in"})
	require.NoError(t, s.AddItem(pricing.CartLine{
		Kind: pricing.KindProduct, ItemID: "sku-1", Name: "Brake Pad", UnitPrice: 80_00, Qty: 1,
	}, cart.UnlimitedStock))
	require.NoError(t, s.ApplyCoupon(pricing.Discount{
		Kind: pricing.DiscountCoupon, Mode: pricing.ModeFixed, Value: 10_00,
		CouponID: uuid.NewString(), CouponCode: "TEN",
	}))
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 50_00}))

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, pricing.StatusPartial, bill.Status)
	require.Empty(t, f.ledger)
	require.Empty(t, f.couponUsages)
	require.Len(t, f.payments, 1)
}

func TestSubmitRecordsCouponUsageForRegisteredCustomer(t *testing.T) {
	f := &fakeStores{}
	o := newOrchestrator(f)
	couponID := uuid.New()
	s := NewSession(uuid.New(), Customer{ID: uuid.New(), Name: "Sari"})
	require.NoError(t, s.AddItem(pricing.CartLine{
		Kind: pricing.KindProduct, ItemID: "sku-9", Name: "Air Filter", UnitPrice: 60_00, Qty: 1,
	}, cart.UnlimitedStock))
	require.NoError(t, s.ApplyCoupon(pricing.Discount{
		Kind: pricing.DiscountCoupon, Mode: pricing.ModePercentage, Value: 10,
		CouponID: couponID.String(), CouponCode: "TEN",
	}))
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 54_00}))

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, pricing.StatusPaid, bill.Status)
	require.Len(t, f.couponUsages, 1)
	require.Equal(t, couponID, f.couponUsages[0].CouponID)
	require.Equal(t, "TEN", f.couponUsages[0].Code)
}

func TestSubmitCreatesBookingsForServiceLines(t *testing.T) {
	f := &fakeStores{}
	o := newOrchestrator(f)
	o.Now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	s := NewSession(uuid.New(), Customer{ID: uuid.New(), Name: "Dewi"})
	require.NoError(t, s.AddItem(pricing.CartLine{
		Kind: pricing.KindService, ItemID: "svc-wash", Name: "Car Wash", UnitPrice: 30_00, Qty: 1, DurationMin: 45,
	}, cart.UnlimitedStock))
	require.NoError(t, s.AddItem(pricing.CartLine{
		Kind: pricing.KindService, ItemID: "svc-detail", Name: "Detailing", UnitPrice: 120_00, Qty: 1,
	}, cart.UnlimitedStock))
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 150_00}))

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, f.bookings, 2)
	require.Equal(t, 45, f.bookings[0].DurationMin)
	require.Equal(t, defaultBookingDurationMin, f.bookings[1].DurationMin)
	require.Equal(t, f.bookings[0].StartTime.Add(45*time.Minute), f.bookings[0].EndTime())
	require.Equal(t, fulfilmentConfirmed, f.bookings[0].Status)
	require.Equal(t, bill.Status, f.bookings[0].PaymentStatus)
	require.Equal(t, int64(30_00), f.bookings[0].TotalAmount)
	require.Equal(t, int64(120_00), f.bookings[1].TotalAmount)

	// A cart without product lines never produces an order.
	require.Empty(t, f.orders)
	require.Empty(t, f.orderItems)
}

func TestSubmitOrderCoversProductSubsetOnly(t *testing.T) {
	f := &fakeStores{}
	o := newOrchestrator(f)
	s := NewSession(uuid.New(), Customer{ID: uuid.New(), Name: "Tono"})
	require.NoError(t, s.AddItem(pricing.CartLine{
		Kind: pricing.KindProduct, ItemID: "sku-1", Name: "Coolant", UnitPrice: 100_00, Qty: 1,
	}, cart.UnlimitedStock))
	require.NoError(t, s.AddItem(pricing.CartLine{
		Kind: pricing.KindService, ItemID: "svc-flush", Name: "Radiator Flush", UnitPrice: 50_00, Qty: 1,
	}, cart.UnlimitedStock))
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 60_00}))

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, pricing.StatusPartial, bill.Status)

	require.Len(t, f.orders, 1)
	require.Equal(t, fulfilmentConfirmed, f.orders[0].Status)
	require.Equal(t, bill.Status, f.orders[0].PaymentStatus)
	require.Equal(t, int64(100_00), f.orders[0].Subtotal)
	require.Equal(t, int64(100_00), f.orders[0].Total)

	require.Len(t, f.billItems, 2)
	require.Len(t, f.orderItems, 1)
	require.Equal(t, "sku-1", f.orderItems[0].ItemID)
	require.Equal(t, pricing.KindProduct, f.orderItems[0].Kind)

	require.Len(t, f.bookings, 1)
	require.Equal(t, "svc-flush", f.bookings[0].ServiceID)
}

func TestSubmitBookingFailureDoesNotBlockTail(t *testing.T) {
	f := &fakeStores{bookingErr: errors.New("calendar down")}
	o := newOrchestrator(f)
	s := NewSession(uuid.New(), Customer{ID: uuid.New(), Name: "Rudi"})
	require.NoError(t, s.AddItem(pricing.CartLine{
		Kind: pricing.KindService, ItemID: "svc-wash", Name: "Car Wash", UnitPrice: 30_00, Qty: 1,
	}, cart.UnlimitedStock))
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 30_00}))

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Empty(t, f.bookings)
	require.Empty(t, f.orders)
	require.Empty(t, f.orderItems)
	require.Len(t, f.billItems, 1)
	require.Len(t, f.payments, 1)
	require.Equal(t, pricing.StatusPaid, bill.Status)
	require.Equal(t, StateCompleted, s.Snapshot().State)

	var degraded []events.Event
	for _, ev := range f.eventsSeen {
		if ev.Topic == events.TopicCheckoutDegrade {
			degraded = append(degraded, ev)
		}
	}
	require.Len(t, degraded, 1)
	require.Contains(t, string(degraded[0].Payload), "create_bookings")
}

func TestSubmitBillFailureFailsSessionAndAllowsRetry(t *testing.T) {
	f := &fakeStores{billErrs: []error{errors.New("db down")}}
	o := newOrchestrator(f)
	s := registeredSession(t)
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 239_00}))

	_, err := o.Submit(context.Background(), s)
	require.Error(t, err)
	require.Equal(t, StateFailed, s.Snapshot().State)
	require.Empty(t, f.orders)
	require.Empty(t, f.payments)

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, pricing.StatusPaid, bill.Status)
	require.Equal(t, StateCompleted, s.Snapshot().State)
}

func TestSubmitRetriesDuplicateBillNumberOnce(t *testing.T) {
	f := &fakeStores{billErrs: []error{ErrDuplicateBillNumber}}
	o := newOrchestrator(f)
	numbers := []string{"POS-20260901-100000-AAAA", "POS-20260901-100000-BBBB"}
	o.BillNumber = func(time.Time) string {
		n := numbers[0]
		if len(numbers) > 1 {
			numbers = numbers[1:]
		}
		return n
	}
	s := registeredSession(t)
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 239_00}))

	bill, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, "POS-20260901-100000-BBBB", bill.Number)
}

func TestSubmitEmitsBillCompletedEvent(t *testing.T) {
	f := &fakeStores{}
	o := newOrchestrator(f)
	s := registeredSession(t)
	require.NoError(t, s.SetPaymentPlan(PaymentPlan{Method: "cash", TenderedAmount: 239_00}))

	_, err := o.Submit(context.Background(), s)
	require.NoError(t, err)
	topics := map[string]int{}
	for _, ev := range f.eventsSeen {
		topics[ev.Topic]++
	}
	require.Equal(t, 1, topics[events.TopicBillCompleted])
	require.Equal(t, 1, topics[events.TopicLedgerRecorded])
}

func TestSubmitRequiresCartAndPaymentPlan(t *testing.T) {
	f := &fakeStores{}
	o := newOrchestrator(f)

	empty := NewSession(uuid.New(), Customer{Name: "Walk-in"})
	require.NoError(t, empty.SetPaymentPlan(PaymentPlan{Method: "cash"}))
	_, err := o.Submit(context.Background(), empty)
	require.ErrorIs(t, err, ErrEmptyCart)

	noPlan := NewSession(uuid.New(), Customer{Name: "Walk-in"})
	require.NoError(t, noPlan.AddItem(pricing.CartLine{
		Kind: pricing.KindProduct, ItemID: "sku-1", Name: "Bulb", UnitPrice: 5_00, Qty: 1,
	}, cart.UnlimitedStock))
	_, err = o.Submit(context.Background(), noPlan)
	require.ErrorIs(t, err, ErrNoPaymentPlan)

	zeroTotal := NewSession(uuid.New(), Customer{Name: "Walk-in"})
	require.NoError(t, zeroTotal.AddItem(pricing.CartLine{
		Kind: pricing.KindProduct, ItemID: "sku-1", Name: "Bulb", UnitPrice: 5_00, Qty: 1,
	}, cart.UnlimitedStock))
	require.NoError(t, zeroTotal.ApplyManualDiscount(pricing.ModePercentage, 100))
	require.NoError(t, zeroTotal.SetPaymentPlan(PaymentPlan{Method: "cash"}))
	_, err = o.Submit(context.Background(), zeroTotal)
	require.ErrorIs(t, err, ErrNonPositiveTotal)
	require.Zero(t, len(f.bills))
}

func TestBillNumberFormat(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 30, 12, 0, time.UTC)
	n := TimeBillNumber(now)
	require.Regexp(t, `^POS-20260901-153012-[0-9A-F]{4}$`, n)
	require.NotEqual(t, n, TimeBillNumber(now))
}
