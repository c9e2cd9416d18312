package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

type staticSource struct {
	rule Rule
	err  error
}

func (s staticSource) GetByCode(context.Context, uuid.UUID, string) (Rule, error) {
	return s.rule, s.err
}

func TestValidateHappyPath(t *testing.T) {
	vendor := uuid.New()
	rule := Rule{
		ID:          uuid.New(),
		VendorID:    vendor,
		Code:        "TEN",
		Mode:        pricing.ModePercentage,
		Value:       10,
		MinSubtotal: 50_00,
		Active:      true,
	}
	v := Validator{Source: staticSource{rule: rule}}
	got, err := v.Validate(context.Background(), vendor, " ten ", 200_00)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Code != "TEN" {
		t.Fatalf("unexpected rule: %+v", got)
	}
	d := got.Discount()
	if d.Kind != pricing.DiscountCoupon || d.Value != 10 || d.CouponCode != "TEN" {
		t.Fatalf("unexpected discount spec: %+v", d)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	v := Validator{Source: staticSource{err: errors.New("no rows")}}
	_, err := v.Validate(context.Background(), uuid.New(), "NOPE", 100_00)
	var invalid *InvalidCouponError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCouponError, got %v", err)
	}
	if invalid.Code != "NOPE" {
		t.Fatalf("unexpected code in error: %q", invalid.Code)
	}
}

func TestValidateVendorMismatch(t *testing.T) {
	rule := Rule{ID: uuid.New(), VendorID: uuid.New(), Code: "TEN", Active: true}
	v := Validator{Source: staticSource{rule: rule}}
	_, err := v.Validate(context.Background(), uuid.New(), "TEN", 100_00)
	var invalid *InvalidCouponError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCouponError, got %v", err)
	}
	if !errors.Is(err, ErrVendorMismatch) {
		t.Fatalf("expected vendor mismatch cause, got %v", err)
	}
}

func TestRuleValidateWindowAndLimits(t *testing.T) {
	vendor := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	from := now.Add(time.Hour)
	to := now.Add(-time.Hour)
	limit := int32(5)

	cases := []struct {
		name string
		rule Rule
		want error
	}{
		{"inactive", Rule{VendorID: vendor}, ErrCouponInactive},
		{"not yet valid", Rule{VendorID: vendor, Active: true, ValidFrom: &from}, ErrCouponInactive},
		{"expired", Rule{VendorID: vendor, Active: true, ValidTo: &to}, ErrCouponExpired},
		{"usage exhausted", Rule{VendorID: vendor, Active: true, UsageLimit: &limit, UsedCount: 5}, ErrUsageLimitReached},
		{"minimum unmet", Rule{VendorID: vendor, Active: true, MinSubtotal: 500_00}, ErrMinimumSubtotalUnmet},
	}
	for _, tc := range cases {
		if err := tc.rule.Validate(vendor, now, 100_00); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateEmptyCode(t *testing.T) {
	v := Validator{Source: staticSource{}}
	_, err := v.Validate(context.Background(), uuid.New(), "  ", 100_00)
	var invalid *InvalidCouponError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCouponError, got %v", err)
	}
}
