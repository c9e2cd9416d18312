package pricing

// PaymentStatus is the settlement state derived for a completed bill.
type PaymentStatus string

const (
	// StatusPaid means the tendered amount covers the grand total.
	StatusPaid PaymentStatus = "paid"
	// StatusPartial means a positive amount below the grand total was tendered.
	StatusPartial PaymentStatus = "partial"
	// StatusCredit means nothing was tendered; the full total is extended as credit.
	StatusCredit PaymentStatus = "credit"
)

// Classify maps a tendered amount against the grand total. Tendered amounts at
// or above the total classify as paid; callers floor the tendered amount to the
// total before computing the due amount.
func Classify(tendered, grandTotal Money) PaymentStatus {
	switch {
	case tendered >= grandTotal:
		return StatusPaid
	case tendered > 0:
		return StatusPartial
	default:
		return StatusCredit
	}
}

// ClampTendered bounds a tendered amount to [0, grandTotal].
func ClampTendered(tendered, grandTotal Money) Money {
	if tendered < 0 {
		return 0
	}
	if tendered > grandTotal {
		return grandTotal
	}
	return tendered
}
