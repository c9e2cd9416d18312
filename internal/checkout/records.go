package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrDuplicateBillNumber is returned by bill stores when the generated bill
// number collides with an existing one. The orchestrator retries once with a
// fresh number.
var ErrDuplicateBillNumber = errors.New("duplicate bill number")

// Customer identifies the party being billed. A zero ID marks a walk-in
// customer, which never accumulates ledger debt or coupon usage.
type Customer struct {
	ID   uuid.UUID
	Name string
}

// WalkIn reports whether the customer is anonymous.
func (c Customer) WalkIn() bool {
	return c.ID == uuid.Nil
}

// LedgerDirection marks whether money moved into or out of the vendor's books.
type LedgerDirection string

const (
	// LedgerIn records money received.
	LedgerIn LedgerDirection = "in"
	// LedgerOut records an outstanding receivable extended to the customer.
	LedgerOut LedgerDirection = "out"
)

// BillPayload carries everything needed to persist a bill. Totals are final;
// nothing is recomputed at the persistence boundary.
type BillPayload struct {
	VendorID           uuid.UUID
	CustomerID         uuid.UUID
	CustomerName       string
	BillNumber         string
	Subtotal           pricing.Money
	DiscountAmount     pricing.Money
	ServicesTotal      pricing.Money
	GrandTotal         pricing.Money
	PaidAmount         pricing.Money
	DueAmount          pricing.Money
	Status             pricing.PaymentStatus
	PaymentMethod      string
	CouponID           string
	CouponCode         string
	AdditionalServices []pricing.AdditionalService
}

// Validate checks the payload invariants before the bill is written.
func (p BillPayload) Validate() error {
	if p.VendorID == uuid.Nil {
		return errors.New("vendor id is required")
	}
	if strings.TrimSpace(p.BillNumber) == "" {
		return errors.New("bill number is required")
	}
	if p.GrandTotal < 0 || p.PaidAmount < 0 || p.DueAmount < 0 {
		return errors.New("bill amounts must not be negative")
	}
	if p.PaidAmount+p.DueAmount != p.GrandTotal {
		return fmt.Errorf("paid %d plus due %d must equal grand total %d", p.PaidAmount, p.DueAmount, p.GrandTotal)
	}
	switch p.Status {
	case pricing.StatusPaid, pricing.StatusPartial, pricing.StatusCredit:
	default:
		return fmt.Errorf("unknown payment status %q", p.Status)
	}
	return nil
}

// Bill is the persisted record of a completed checkout.
type Bill struct {
	ID                 uuid.UUID
	Number             string
	VendorID           uuid.UUID
	CustomerID         uuid.UUID
	CustomerName       string
	Subtotal           pricing.Money
	DiscountAmount     pricing.Money
	ServicesTotal      pricing.Money
	GrandTotal         pricing.Money
	PaidAmount         pricing.Money
	DueAmount          pricing.Money
	Status             pricing.PaymentStatus
	PaymentMethod      string
	CouponCode         string
	AdditionalServices []pricing.AdditionalService
	CreatedAt          time.Time
}

// BillItemPayload is one line of a bill.
type BillItemPayload struct {
	BillID    uuid.UUID
	Kind      pricing.LineKind
	ItemID    string
	Name      string
	UnitPrice pricing.Money
	Qty       int
	LineTotal pricing.Money
}

// Validate checks the line before it is written.
func (p BillItemPayload) Validate() error {
	if p.BillID == uuid.Nil {
		return errors.New("bill id is required")
	}
	if strings.TrimSpace(p.ItemID) == "" || strings.TrimSpace(p.Name) == "" {
		return errors.New("item id and name are required")
	}
	if p.Qty <= 0 {
		return errors.New("qty must be positive")
	}
	return nil
}

// BillItem is a persisted bill line.
type BillItem struct {
	ID        uuid.UUID
	BillID    uuid.UUID
	Kind      pricing.LineKind
	ItemID    string
	Name      string
	UnitPrice pricing.Money
	Qty       int
	LineTotal pricing.Money
}

// OrderPayload creates the fulfilment order aggregating the product lines of
// a bill. Subtotal and Total cover the product subset only; the payment
// status mirrors the bill's.
type OrderPayload struct {
	VendorID      uuid.UUID
	CustomerID    uuid.UUID
	BillID        uuid.UUID
	Status        string
	PaymentStatus pricing.PaymentStatus
	Subtotal      pricing.Money
	Total         pricing.Money
}

// Order is a persisted fulfilment order.
type Order struct {
	ID            uuid.UUID
	VendorID      uuid.UUID
	CustomerID    uuid.UUID
	BillID        uuid.UUID
	Status        string
	PaymentStatus pricing.PaymentStatus
	Subtotal      pricing.Money
	Total         pricing.Money
	CreatedAt     time.Time
}

// OrderItemPayload is one line of a fulfilment order.
type OrderItemPayload struct {
	OrderID   uuid.UUID
	Kind      pricing.LineKind
	ItemID    string
	Name      string
	UnitPrice pricing.Money
	Qty       int
	LineTotal pricing.Money
}

// OrderItem is a persisted order line.
type OrderItem struct {
	ID      uuid.UUID
	OrderID uuid.UUID
	ItemID  string
	Name    string
	Qty     int
}

// BookingPayload schedules a service line from a completed checkout. The
// total covers that line alone and the payment status mirrors the bill's.
type BookingPayload struct {
	VendorID      uuid.UUID
	CustomerID    uuid.UUID
	BillID        uuid.UUID
	ServiceID     string
	ServiceName   string
	Status        string
	PaymentStatus pricing.PaymentStatus
	TotalAmount   pricing.Money
	StartTime     time.Time
	DurationMin   int
}

// Validate checks the booking before it is written.
func (p BookingPayload) Validate() error {
	if strings.TrimSpace(p.ServiceID) == "" || strings.TrimSpace(p.ServiceName) == "" {
		return errors.New("service id and name are required")
	}
	if p.DurationMin <= 0 {
		return errors.New("duration must be positive")
	}
	if p.StartTime.IsZero() {
		return errors.New("start time is required")
	}
	return nil
}

// EndTime derives the booking end from start plus duration.
func (p BookingPayload) EndTime() time.Time {
	return p.StartTime.Add(time.Duration(p.DurationMin) * time.Minute)
}

// Booking is a persisted service booking.
type Booking struct {
	ID            uuid.UUID
	VendorID      uuid.UUID
	CustomerID    uuid.UUID
	BillID        uuid.UUID
	ServiceID     string
	ServiceName   string
	Status        string
	PaymentStatus pricing.PaymentStatus
	TotalAmount   pricing.Money
	StartTime     time.Time
	EndTime       time.Time
}

// PaymentPayload records the money actually received against a bill.
type PaymentPayload struct {
	BillID   uuid.UUID
	VendorID uuid.UUID
	Method   string
	Amount   pricing.Money
}

// Validate checks the payment before it is written.
func (p PaymentPayload) Validate() error {
	if p.BillID == uuid.Nil {
		return errors.New("bill id is required")
	}
	if strings.TrimSpace(p.Method) == "" {
		return errors.New("payment method is required")
	}
	if p.Amount <= 0 {
		return errors.New("payment amount must be positive")
	}
	return nil
}

// Payment is a persisted payment record.
type Payment struct {
	ID        uuid.UUID
	BillID    uuid.UUID
	VendorID  uuid.UUID
	Method    string
	Amount    pricing.Money
	CreatedAt time.Time
}

// CouponUsagePayload ties a redeemed coupon to the customer and bill.
type CouponUsagePayload struct {
	CouponID   uuid.UUID
	VendorID   uuid.UUID
	CustomerID uuid.UUID
	BillID     uuid.UUID
	Code       string
}

// CouponUsage is a persisted coupon redemption.
type CouponUsage struct {
	ID         uuid.UUID
	CouponID   uuid.UUID
	CustomerID uuid.UUID
	BillID     uuid.UUID
	Code       string
	UsedAt     time.Time
}

// LedgerPayload records a money movement against the customer's account.
type LedgerPayload struct {
	VendorID   uuid.UUID
	CustomerID uuid.UUID
	BillID     uuid.UUID
	Direction  LedgerDirection
	Amount     pricing.Money
	Note       string
}

// Validate checks the ledger entry before it is written.
func (p LedgerPayload) Validate() error {
	if p.CustomerID == uuid.Nil {
		return errors.New("ledger entries require a registered customer")
	}
	if p.Amount <= 0 {
		return errors.New("ledger amount must be positive")
	}
	switch p.Direction {
	case LedgerIn, LedgerOut:
	default:
		return fmt.Errorf("unknown ledger direction %q", p.Direction)
	}
	return nil
}

// LedgerTransaction is a persisted ledger entry.
type LedgerTransaction struct {
	ID         uuid.UUID
	VendorID   uuid.UUID
	CustomerID uuid.UUID
	BillID     uuid.UUID
	Direction  LedgerDirection
	Amount     pricing.Money
	Note       string
	CreatedAt  time.Time
}

// BillStore persists bills, their lines, and payments.
type BillStore interface {
	CreateBill(ctx context.Context, payload BillPayload) (Bill, error)
	AddBillItem(ctx context.Context, payload BillItemPayload) (BillItem, error)
	RecordPayment(ctx context.Context, payload PaymentPayload) (Payment, error)
}

// OrderStore persists fulfilment orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, payload OrderPayload) (Order, error)
	AddOrderItem(ctx context.Context, payload OrderItemPayload) (OrderItem, error)
}

// BookingStore persists service bookings.
type BookingStore interface {
	CreateBooking(ctx context.Context, payload BookingPayload) (Booking, error)
}

// LedgerStore persists customer ledger movements.
type LedgerStore interface {
	RecordTransaction(ctx context.Context, payload LedgerPayload) (LedgerTransaction, error)
}

// CouponUsageStore persists coupon redemptions and bumps usage counters.
type CouponUsageStore interface {
	RecordUsage(ctx context.Context, payload CouponUsagePayload) (CouponUsage, error)
}
