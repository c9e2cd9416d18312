package pricing

import (
	"errors"
	"strings"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// LineKind distinguishes product lines from service lines in a cart.
type LineKind string

const (
	// KindProduct marks a stocked catalogue item.
	KindProduct LineKind = "product"
	// KindService marks a scheduled service line.
	KindService LineKind = "service"
)

// CartLine describes a single entry in a checkout cart. Unit prices are
// tax-inclusive; no further tax is added to cart lines.
type CartLine struct {
	Kind        LineKind
	ItemID      string
	Name        string
	UnitPrice   Money
	Qty         int
	Unit        string
	SourceID    string
	DurationMin int
}

// LineTotal returns the extended price for the line.
func (l CartLine) LineTotal() Money {
	if l.Qty <= 0 {
		return 0
	}
	return Money(l.Qty) * l.UnitPrice
}

// DiscountKind identifies how a discount was applied.
type DiscountKind string

const (
	// DiscountNone means no discount is active.
	DiscountNone DiscountKind = "none"
	// DiscountManual is a cashier-entered discount.
	DiscountManual DiscountKind = "manual"
	// DiscountCoupon is a discount resolved from a coupon code.
	DiscountCoupon DiscountKind = "coupon"
)

// DiscountMode identifies how the discount value is interpreted.
type DiscountMode string

const (
	// ModePercentage treats Value as a percentage of the subtotal.
	ModePercentage DiscountMode = "percentage"
	// ModeFixed treats Value as an absolute amount in minor units.
	ModeFixed DiscountMode = "fixed"
)

// ErrInvalidDiscount is returned when a discount value is negative or malformed.
var ErrInvalidDiscount = errors.New("invalid discount")

// Discount captures the single active discount on a cart. A coupon discount and
// a manual discount are mutually exclusive; callers enforce that by replacing
// the whole value.
type Discount struct {
	Kind       DiscountKind
	Mode       DiscountMode
	Value      int64
	CouponID   string
	CouponCode string
}

// NoDiscount returns the zero discount value.
func NoDiscount() Discount {
	return Discount{Kind: DiscountNone}
}

// NewManualDiscount validates and builds a cashier-entered discount.
func NewManualDiscount(mode DiscountMode, value int64) (Discount, error) {
	if value < 0 {
		return Discount{}, ErrInvalidDiscount
	}
	switch mode {
	case ModePercentage, ModeFixed:
	default:
		return Discount{}, ErrInvalidDiscount
	}
	return Discount{Kind: DiscountManual, Mode: mode, Value: value}, nil
}

// Result aggregates the computed totals for a cart snapshot. It is derived, never
// stored, and recomputed on every cart or discount mutation.
type Result struct {
	Subtotal              Money
	DiscountAmount        Money
	SubtotalAfterDiscount Money
	ServicesTotal         Money
	GrandTotal            Money
	ItemCount             int
}

// Compute calculates the totals for the provided cart snapshot. Pure and
// deterministic; safe to call on every mutation.
func Compute(lines []CartLine, discount Discount, services []AdditionalService) Result {
	var subtotal Money
	var count int
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		subtotal += l.LineTotal()
		count += l.Qty
	}

	amount := discountAmount(subtotal, discount)
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}

	after := subtotal - amount
	if after < 0 {
		after = 0
	}

	var servicesTotal Money
	for _, svc := range services {
		servicesTotal += svc.TotalAmount
	}

	return Result{
		Subtotal:              subtotal,
		DiscountAmount:        amount,
		SubtotalAfterDiscount: after,
		ServicesTotal:         servicesTotal,
		GrandTotal:            after + servicesTotal,
		ItemCount:             count,
	}
}

func discountAmount(subtotal Money, d Discount) Money {
	if d.Kind == DiscountNone || d.Value <= 0 {
		return 0
	}
	if strings.EqualFold(string(d.Mode), string(ModePercentage)) {
		return (subtotal * d.Value) / 100
	}
	return d.Value
}
