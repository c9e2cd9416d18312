package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

var (
	// ErrCouponInactive is returned when a coupon is disabled or used before its window opens.
	ErrCouponInactive = errors.New("coupon not active")
	// ErrCouponExpired is returned when the coupon window has closed.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrUsageLimitReached indicates the coupon has exhausted its usage quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrMinimumSubtotalUnmet indicates the cart subtotal is below the coupon requirement.
	ErrMinimumSubtotalUnmet = errors.New("coupon minimum subtotal not met")
	// ErrVendorMismatch is returned when the coupon belongs to a different vendor.
	ErrVendorMismatch = errors.New("coupon not valid for vendor")
)

// Rule captures the runtime constraints of a coupon.
type Rule struct {
	ID          uuid.UUID
	VendorID    uuid.UUID
	Code        string
	Mode        pricing.DiscountMode
	Value       int64
	MinSubtotal pricing.Money
	UsageLimit  *int32
	UsedCount   int32
	ValidFrom   *time.Time
	ValidTo     *time.Time
	Active      bool
}

// Validate ensures the rule can be applied for the vendor at the provided
// instant and cart subtotal.
func (r Rule) Validate(vendorID uuid.UUID, now time.Time, subtotal pricing.Money) error {
	if r.VendorID != uuid.Nil && r.VendorID != vendorID {
		return ErrVendorMismatch
	}
	if !r.Active {
		return ErrCouponInactive
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrCouponInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrCouponExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	if subtotal < r.MinSubtotal {
		return ErrMinimumSubtotalUnmet
	}
	return nil
}

// Discount converts the rule into the discount spec consumed by the pricing
// engine. The result is advisory; the caller re-runs pricing with it.
func (r Rule) Discount() pricing.Discount {
	return pricing.Discount{
		Kind:       pricing.DiscountCoupon,
		Mode:       r.Mode,
		Value:      r.Value,
		CouponID:   r.ID.String(),
		CouponCode: r.Code,
	}
}

// NormalizeCode canonicalizes a user-entered coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
