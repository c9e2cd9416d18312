package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Source resolves coupon codes for a vendor. Implementations live at the
// persistence boundary.
type Source interface {
	GetByCode(ctx context.Context, vendorID uuid.UUID, code string) (Rule, error)
}

// InvalidCouponError is the single error surface for any coupon rejection.
// It carries a human-readable reason; the active discount state is left
// untouched by the caller when it is returned.
type InvalidCouponError struct {
	Code   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *InvalidCouponError) Error() string {
	return fmt.Sprintf("invalid coupon %q: %s", e.Code, e.Reason)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *InvalidCouponError) Unwrap() error {
	return e.Err
}

// Validator resolves and checks coupon codes against a subtotal context.
type Validator struct {
	Source Source
	Now    func() time.Time
}

func (v Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Validate resolves code for the vendor and checks it against the subtotal.
// Purely advisory: it performs no writes, and callers must re-run the pricing
// engine with the returned rule's discount.
func (v Validator) Validate(ctx context.Context, vendorID uuid.UUID, code string, subtotal pricing.Money) (Rule, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Rule{}, &InvalidCouponError{Code: code, Reason: "coupon code required"}
	}
	if v.Source == nil {
		return Rule{}, errors.New("coupon validator not configured")
	}
	rule, err := v.Source.GetByCode(ctx, vendorID, normalized)
	if err != nil {
		return Rule{}, &InvalidCouponError{Code: normalized, Reason: "unknown coupon code", Err: err}
	}
	if err := rule.Validate(vendorID, v.now(), subtotal); err != nil {
		return Rule{}, &InvalidCouponError{Code: normalized, Reason: err.Error(), Err: err}
	}
	return rule, nil
}
