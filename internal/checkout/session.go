package checkout

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// State tracks where a checkout session sits in its lifecycle.
type State string

const (
	// StateBuilding covers cart assembly.
	StateBuilding State = "building"
	// StateReviewing covers discount and coupon adjustments.
	StateReviewing State = "reviewing"
	// StateConfiguring covers additional-service configuration.
	StateConfiguring State = "configuring"
	// StatePaymentSelection covers payment plan entry.
	StatePaymentSelection State = "payment_selection"
	// StateSubmitting means the orchestrator owns the session.
	StateSubmitting State = "submitting"
	// StateCompleted means a bill was created; the session is read-only.
	StateCompleted State = "completed"
	// StateFailed means the submit attempt failed before bill creation and
	// may be retried.
	StateFailed State = "failed"
)

var (
	// ErrSessionLocked is returned when a mutation races an in-flight submit.
	ErrSessionLocked = errors.New("session is submitting")
	// ErrSessionCompleted is returned when a mutation targets a finished session.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrEmptyCart rejects a submit with no cart lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoPaymentPlan rejects a submit before a payment method was chosen.
	ErrNoPaymentPlan = errors.New("payment plan not set")
	// ErrNonPositiveTotal rejects a submit whose grand total is zero or less.
	ErrNonPositiveTotal = errors.New("grand total must be positive")
	// ErrDiscountConflict enforces coupon and manual discount exclusivity.
	ErrDiscountConflict = errors.New("coupon and manual discount are mutually exclusive")
	// ErrNoCouponApplied is returned when removing a coupon that is not active.
	ErrNoCouponApplied = errors.New("no coupon applied")
	// ErrServiceNotFound is returned when removing an unknown additional service.
	ErrServiceNotFound = errors.New("additional service not found")
)

// PaymentPlan is the cashier-selected settlement intent. A tendered amount of
// zero with a non-empty method means the full total is extended as credit.
type PaymentPlan struct {
	Method         string
	TenderedAmount pricing.Money
}

// Set reports whether a method has been chosen.
func (p PaymentPlan) Set() bool {
	return p.Method != ""
}

// Snapshot is an immutable view of a session, used both for rendering and as
// the orchestrator's input. Totals are recomputed at capture time.
type Snapshot struct {
	ID        uuid.UUID
	VendorID  uuid.UUID
	State     State
	Customer  Customer
	Lines     []pricing.CartLine
	Discount  pricing.Discount
	Services  []pricing.AdditionalService
	Payment   PaymentPlan
	Totals    pricing.Result
	CreatedAt time.Time
	Bill      *Bill
}

// Session is a single cashier checkout in progress. It owns its cart
// exclusively and serializes all access through an internal mutex; nothing is
// persisted until the orchestrator submits it.
type Session struct {
	mu sync.Mutex

	id        uuid.UUID
	vendorID  uuid.UUID
	customer  Customer
	cart      *cart.Cart
	discount  pricing.Discount
	services  []pricing.AdditionalService
	payment   PaymentPlan
	state     State
	createdAt time.Time
	bill      *Bill
}

// NewSession builds a fresh session in the building state.
func NewSession(vendorID uuid.UUID, customer Customer) *Session {
	return &Session{
		id:        uuid.New(),
		vendorID:  vendorID,
		customer:  customer,
		cart:      cart.New(),
		discount:  pricing.NoDiscount(),
		state:     StateBuilding,
		createdAt: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// VendorID returns the owning vendor.
func (s *Session) VendorID() uuid.UUID { return s.vendorID }

// Snapshot captures the current session contents with fresh totals.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	lines := s.cart.Lines()
	services := append([]pricing.AdditionalService(nil), s.services...)
	return Snapshot{
		ID:        s.id,
		VendorID:  s.vendorID,
		State:     s.state,
		Customer:  s.customer,
		Lines:     lines,
		Discount:  s.discount,
		Services:  services,
		Payment:   s.payment,
		Totals:    pricing.Compute(lines, s.discount, services),
		CreatedAt: s.createdAt,
		Bill:      s.bill,
	}
}

// Pricing recomputes and returns the current totals.
func (s *Session) Pricing() pricing.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Compute(s.cart.Lines(), s.discount, s.services)
}

func (s *Session) mutableLocked() error {
	switch s.state {
	case StateSubmitting:
		return ErrSessionLocked
	case StateCompleted:
		return ErrSessionCompleted
	}
	return nil
}

// AddItem adds or increments a cart line.
func (s *Session) AddItem(line pricing.CartLine, stockCeiling int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if err := s.cart.Add(line, stockCeiling); err != nil {
		return err
	}
	s.state = StateBuilding
	return nil
}

// IncrementItem bumps a line quantity by one.
func (s *Session) IncrementItem(itemID string, stockCeiling int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if err := s.cart.Increment(itemID, stockCeiling); err != nil {
		return err
	}
	s.state = StateBuilding
	return nil
}

// DecrementItem lowers a line quantity by one, dropping it at zero.
func (s *Session) DecrementItem(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if err := s.cart.Decrement(itemID); err != nil {
		return err
	}
	s.state = StateBuilding
	return nil
}

// RemoveItem drops a line entirely.
func (s *Session) RemoveItem(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if err := s.cart.Remove(itemID); err != nil {
		return err
	}
	s.state = StateBuilding
	return nil
}

// ApplyCoupon installs a coupon discount. Rejected while a manual discount is
// active; the manual discount must be removed first.
func (s *Session) ApplyCoupon(d pricing.Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if d.Kind != pricing.DiscountCoupon {
		return pricing.ErrInvalidDiscount
	}
	if s.discount.Kind == pricing.DiscountManual {
		return ErrDiscountConflict
	}
	s.discount = d
	s.state = StateReviewing
	return nil
}

// RemoveCoupon clears an active coupon discount.
func (s *Session) RemoveCoupon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if s.discount.Kind != pricing.DiscountCoupon {
		return ErrNoCouponApplied
	}
	s.discount = pricing.NoDiscount()
	s.state = StateReviewing
	return nil
}

// ApplyManualDiscount installs a cashier-entered discount. Rejected while a
// coupon is active.
func (s *Session) ApplyManualDiscount(mode pricing.DiscountMode, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if s.discount.Kind == pricing.DiscountCoupon {
		return ErrDiscountConflict
	}
	d, err := pricing.NewManualDiscount(mode, value)
	if err != nil {
		return err
	}
	s.discount = d
	s.state = StateReviewing
	return nil
}

// ClearDiscount removes whatever discount is active.
func (s *Session) ClearDiscount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.discount = pricing.NoDiscount()
	s.state = StateReviewing
	return nil
}

// AddService attaches an ad hoc additional service; tax is derived once here.
func (s *Session) AddService(name, description string, baseAmount pricing.Money) (pricing.AdditionalService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return pricing.AdditionalService{}, err
	}
	svc, err := pricing.NewAdditionalService(uuid.NewString(), name, description, baseAmount)
	if err != nil {
		return pricing.AdditionalService{}, err
	}
	s.services = append(s.services, svc)
	s.state = StateConfiguring
	return svc, nil
}

// RemoveService drops an additional service by id.
func (s *Session) RemoveService(serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	for i, svc := range s.services {
		if svc.ID == serviceID {
			s.services = append(s.services[:i], s.services[i+1:]...)
			s.state = StateConfiguring
			return nil
		}
	}
	return ErrServiceNotFound
}

// SetPaymentPlan records the settlement intent ahead of submit.
func (s *Session) SetPaymentPlan(plan PaymentPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	if !plan.Set() {
		return ErrNoPaymentPlan
	}
	if plan.TenderedAmount < 0 {
		return errors.New("tendered amount must not be negative")
	}
	s.payment = plan
	s.state = StatePaymentSelection
	return nil
}

// Reset clears the session back to an empty building state. Not allowed once
// a bill exists.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return ErrSessionLocked
	case StateCompleted:
		return ErrSessionCompleted
	}
	s.cart.Clear()
	s.discount = pricing.NoDiscount()
	s.services = nil
	s.payment = PaymentPlan{}
	s.state = StateBuilding
	return nil
}

// Bill returns the persisted bill after a completed submit.
func (s *Session) Bill() (*Bill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bill == nil {
		return nil, false
	}
	b := *s.bill
	return &b, true
}

// beginSubmit validates preconditions, locks the session for submission, and
// returns the snapshot the orchestrator will work from.
func (s *Session) beginSubmit() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return Snapshot{}, ErrSessionLocked
	case StateCompleted:
		return Snapshot{}, ErrSessionCompleted
	}
	if s.cart.Empty() {
		return Snapshot{}, ErrEmptyCart
	}
	if !s.payment.Set() {
		return Snapshot{}, ErrNoPaymentPlan
	}
	snap := s.snapshotLocked()
	if snap.Totals.GrandTotal <= 0 {
		return Snapshot{}, ErrNonPositiveTotal
	}
	s.state = StateSubmitting
	snap.State = StateSubmitting
	return snap, nil
}

// fail releases a submitting session back to a retryable failed state.
func (s *Session) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		s.state = StateFailed
	}
}

// complete marks the session finished and pins the resulting bill.
func (s *Session) complete(bill Bill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bill = &bill
	s.state = StateCompleted
}
