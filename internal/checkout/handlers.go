package checkout

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/coupon"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Handler exposes the checkout session surface over HTTP. All routes require
// an authenticated vendor on the request context.
type Handler struct {
	Sessions     *Registry
	Coupons      coupon.Validator
	Orchestrator *Orchestrator
	Validate     *validator.Validate
	Logger       zerolog.Logger

	// SubmitLimiter optionally rate limits the submit endpoint.
	SubmitLimiter func(http.Handler) http.Handler
}

// Routes returns the session router, mounted under /v1/pos by the caller.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.createSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Delete("/", h.deleteSession)
		r.Post("/items", h.addItem)
		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Post("/increment", h.incrementItem)
			r.Post("/decrement", h.decrementItem)
			r.Delete("/", h.removeItem)
		})
		r.Post("/coupon", h.applyCoupon)
		r.Delete("/coupon", h.removeCoupon)
		r.Post("/discount", h.applyDiscount)
		r.Delete("/discount", h.clearDiscount)
		r.Post("/services", h.addService)
		r.Delete("/services/{serviceID}", h.removeService)
		r.Post("/payment", h.setPayment)
		r.Post("/reset", h.resetSession)
		r.Get("/bill", h.getBill)

		submit := http.HandlerFunc(h.submit)
		if h.SubmitLimiter != nil {
			r.Method(http.MethodPost, "/submit", h.SubmitLimiter(submit))
		} else {
			r.Method(http.MethodPost, "/submit", submit)
		}
	})
	return r
}

type createSessionRequest struct {
	CustomerID   string `json:"customerId" validate:"omitempty,uuid4"`
	CustomerName string `json:"customerName" validate:"omitempty,max=120"`
}

type addItemRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=product service"`
	ItemID      string `json:"itemId" validate:"required"`
	Name        string `json:"name" validate:"required,max=200"`
	UnitPrice   int64  `json:"unitPrice" validate:"min=0"`
	Qty         int    `json:"qty" validate:"required,min=1"`
	Unit        string `json:"unit" validate:"omitempty,max=20"`
	SourceID    string `json:"sourceId" validate:"omitempty,max=64"`
	DurationMin int    `json:"durationMin" validate:"min=0"`
	StockOnHand *int   `json:"stockOnHand" validate:"omitempty,min=0"`
}

type stockRequest struct {
	StockOnHand *int `json:"stockOnHand" validate:"omitempty,min=0"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type manualDiscountRequest struct {
	Mode  string `json:"mode" validate:"required,oneof=percentage fixed"`
	Value int64  `json:"value" validate:"min=0"`
}

type addServiceRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=500"`
	BaseAmount  int64  `json:"baseAmount" validate:"min=0"`
}

type paymentRequest struct {
	Method         string `json:"method" validate:"required,oneof=cash card transfer qris credit"`
	TenderedAmount int64  `json:"tenderedAmount" validate:"min=0"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.vendor(w, r)
	if !ok {
		return
	}
	var req createSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	customer := Customer{Name: req.CustomerName}
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			common.WriteError(w, common.NewValidationError("invalid customer id", nil))
			return
		}
		customer.ID = id
	}
	if customer.WalkIn() && customer.Name == "" {
		customer.Name = "Walk-in"
	}
	s := h.Sessions.Create(vendorID, customer)
	common.JSONData(w, http.StatusCreated, sessionView(s.Snapshot()))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.vendor(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.WriteError(w, common.NewValidationError("invalid session id", nil))
		return
	}
	if err := h.Sessions.Delete(vendorID, id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	line := pricing.CartLine{
		Kind:        pricing.LineKind(req.Kind),
		ItemID:      req.ItemID,
		Name:        req.Name,
		UnitPrice:   req.UnitPrice,
		Qty:         req.Qty,
		Unit:        req.Unit,
		SourceID:    req.SourceID,
		DurationMin: req.DurationMin,
	}
	ceiling := cart.UnlimitedStock
	if req.StockOnHand != nil {
		ceiling = *req.StockOnHand
	}
	if err := s.AddItem(line, ceiling); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) incrementItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req stockRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	ceiling := cart.UnlimitedStock
	if req.StockOnHand != nil {
		ceiling = *req.StockOnHand
	}
	if err := s.IncrementItem(chi.URLParam(r, "itemID"), ceiling); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) decrementItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.DecrementItem(chi.URLParam(r, "itemID")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveItem(chi.URLParam(r, "itemID")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req applyCouponRequest
	if !h.decode(w, r, &req) {
		return
	}
	subtotal := s.Pricing().Subtotal
	rule, err := h.Coupons.Validate(r.Context(), s.VendorID(), req.Code, subtotal)
	if err != nil {
		h.countCoupon("rejected")
		h.writeDomainError(w, err)
		return
	}
	if err := s.ApplyCoupon(rule.Discount()); err != nil {
		h.countCoupon("rejected")
		h.writeDomainError(w, err)
		return
	}
	h.countCoupon("accepted")
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveCoupon(); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req manualDiscountRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.ApplyManualDiscount(pricing.DiscountMode(req.Mode), req.Value); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) clearDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.ClearDiscount(); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) addService(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addServiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := s.AddService(req.Name, req.Description, req.BaseAmount); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) removeService(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveService(chi.URLParam(r, "serviceID")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) setPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	plan := PaymentPlan{Method: req.Method, TenderedAmount: req.TenderedAmount}
	if err := s.SetPaymentPlan(plan); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) resetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Reset(); err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.Orchestrator == nil {
		common.WriteError(w, common.NewAppError("INTERNAL", "checkout not configured", http.StatusInternalServerError, nil))
		return
	}
	bill, err := h.Orchestrator.Submit(r.Context(), s)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, billView(bill))
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	bill, ok := s.Bill()
	if !ok {
		common.WriteError(w, common.NewNotFoundError("session has no bill yet"))
		return
	}
	common.JSONData(w, http.StatusOK, billView(*bill))
}

func (h *Handler) vendor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.VendorID(r.Context())
	if !ok {
		common.WriteError(w, common.NewAppError("UNAUTHORIZED", "vendor authentication required", http.StatusUnauthorized, nil))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.WriteError(w, common.NewAppError("UNAUTHORIZED", "invalid vendor identity", http.StatusUnauthorized, err))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	vendorID, ok := h.vendor(w, r)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.WriteError(w, common.NewValidationError("invalid session id", nil))
		return nil, false
	}
	s, err := h.Sessions.Get(vendorID, id)
	if err != nil {
		h.writeDomainError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.WriteError(w, common.NewValidationError("invalid request body", nil))
		return false
	}
	return h.validate(w, dst)
}

// decodeOptional tolerates an empty body; some endpoints take all-optional input.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		common.WriteError(w, common.NewValidationError("invalid request body", nil))
		return false
	}
	return h.validate(w, dst)
}

func (h *Handler) validate(w http.ResponseWriter, dst any) bool {
	if h.Validate == nil {
		return true
	}
	if err := h.Validate.Struct(dst); err != nil {
		var invalid validator.ValidationErrors
		details := map[string]string{}
		if errors.As(err, &invalid) {
			for _, fe := range invalid {
				details[fe.Field()] = fe.Tag()
			}
		}
		common.WriteError(w, common.NewValidationError("request validation failed", details))
		return false
	}
	return true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var invalidCoupon *coupon.InvalidCouponError
	switch {
	case errors.As(err, &invalidCoupon):
		common.WriteError(w, common.NewAppError("INVALID_COUPON", invalidCoupon.Reason, http.StatusUnprocessableEntity, err))
	case errors.Is(err, cart.ErrStockExceeded):
		common.WriteError(w, common.NewAppError("STOCK_EXCEEDED", err.Error(), http.StatusConflict, err))
	case errors.Is(err, ErrDiscountConflict):
		common.WriteError(w, common.NewAppError("DISCOUNT_CONFLICT", err.Error(), http.StatusConflict, err))
	case errors.Is(err, ErrSessionLocked), errors.Is(err, ErrSessionCompleted):
		common.WriteError(w, common.NewAppError("SESSION_LOCKED", err.Error(), http.StatusConflict, err))
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, cart.ErrNotFound), errors.Is(err, ErrServiceNotFound):
		common.WriteError(w, common.NewNotFoundError(err.Error()))
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrNoPaymentPlan),
		errors.Is(err, ErrNonPositiveTotal),
		errors.Is(err, ErrNoCouponApplied),
		errors.Is(err, cart.ErrInvalidInput),
		errors.Is(err, pricing.ErrInvalidDiscount),
		errors.Is(err, pricing.ErrInvalidService):
		common.WriteError(w, common.NewValidationError(err.Error(), nil))
	default:
		h.Logger.Error().Err(err).Msg("checkout request failed")
		common.WriteError(w, common.NewAppError("INTERNAL", "checkout failed", http.StatusInternalServerError, err))
	}
}

func (h *Handler) countCoupon(result string) {
	if obs.CouponValidationTotal != nil {
		obs.CouponValidationTotal.WithLabelValues(result).Inc()
	}
}

type lineDTO struct {
	Kind        string `json:"kind"`
	ItemID      string `json:"itemId"`
	Name        string `json:"name"`
	UnitPrice   int64  `json:"unitPrice"`
	Qty         int    `json:"qty"`
	Unit        string `json:"unit,omitempty"`
	SourceID    string `json:"sourceId,omitempty"`
	DurationMin int    `json:"durationMin,omitempty"`
	LineTotal   int64  `json:"lineTotal"`
}

type discountDTO struct {
	Kind       string `json:"kind"`
	Mode       string `json:"mode"`
	Value      int64  `json:"value"`
	CouponCode string `json:"couponCode,omitempty"`
}

type paymentDTO struct {
	Method         string `json:"method"`
	TenderedAmount int64  `json:"tenderedAmount"`
}

type totalsDTO struct {
	Subtotal              int64 `json:"subtotal"`
	DiscountAmount        int64 `json:"discountAmount"`
	SubtotalAfterDiscount int64 `json:"subtotalAfterDiscount"`
	ServicesTotal         int64 `json:"servicesTotal"`
	GrandTotal            int64 `json:"grandTotal"`
	ItemCount             int   `json:"itemCount"`
}

type sessionDTO struct {
	ID                 string                      `json:"id"`
	State              string                      `json:"state"`
	CustomerID         string                      `json:"customerId,omitempty"`
	CustomerName       string                      `json:"customerName"`
	Items              []lineDTO                   `json:"items"`
	Discount           *discountDTO                `json:"discount,omitempty"`
	AdditionalServices []pricing.AdditionalService `json:"additionalServices"`
	Payment            *paymentDTO                 `json:"payment,omitempty"`
	Totals             totalsDTO                   `json:"totals"`
	CreatedAt          time.Time                   `json:"createdAt"`
}

type billDTO struct {
	ID                 string                      `json:"id"`
	Number             string                      `json:"number"`
	CustomerID         string                      `json:"customerId,omitempty"`
	CustomerName       string                      `json:"customerName"`
	Subtotal           int64                       `json:"subtotal"`
	DiscountAmount     int64                       `json:"discountAmount"`
	ServicesTotal      int64                       `json:"servicesTotal"`
	GrandTotal         int64                       `json:"grandTotal"`
	PaidAmount         int64                       `json:"paidAmount"`
	DueAmount          int64                       `json:"dueAmount"`
	Status             string                      `json:"status"`
	PaymentMethod      string                      `json:"paymentMethod"`
	CouponCode         string                      `json:"couponCode,omitempty"`
	AdditionalServices []pricing.AdditionalService `json:"additionalServices"`
	CreatedAt          time.Time                   `json:"createdAt"`
}

func sessionView(snap Snapshot) sessionDTO {
	view := sessionDTO{
		ID:                 snap.ID.String(),
		State:              string(snap.State),
		CustomerName:       snap.Customer.Name,
		Items:              make([]lineDTO, 0, len(snap.Lines)),
		AdditionalServices: snap.Services,
		Totals: totalsDTO{
			Subtotal:              snap.Totals.Subtotal,
			DiscountAmount:        snap.Totals.DiscountAmount,
			SubtotalAfterDiscount: snap.Totals.SubtotalAfterDiscount,
			ServicesTotal:         snap.Totals.ServicesTotal,
			GrandTotal:            snap.Totals.GrandTotal,
			ItemCount:             snap.Totals.ItemCount,
		},
		CreatedAt: snap.CreatedAt,
	}
	if view.AdditionalServices == nil {
		view.AdditionalServices = []pricing.AdditionalService{}
	}
	if !snap.Customer.WalkIn() {
		view.CustomerID = snap.Customer.ID.String()
	}
	for _, line := range snap.Lines {
		view.Items = append(view.Items, lineDTO{
			Kind:        string(line.Kind),
			ItemID:      line.ItemID,
			Name:        line.Name,
			UnitPrice:   line.UnitPrice,
			Qty:         line.Qty,
			Unit:        line.Unit,
			SourceID:    line.SourceID,
			DurationMin: line.DurationMin,
			LineTotal:   line.LineTotal(),
		})
	}
	if snap.Discount.Kind != pricing.DiscountNone {
		view.Discount = &discountDTO{
			Kind:       string(snap.Discount.Kind),
			Mode:       string(snap.Discount.Mode),
			Value:      snap.Discount.Value,
			CouponCode: snap.Discount.CouponCode,
		}
	}
	if snap.Payment.Set() {
		view.Payment = &paymentDTO{
			Method:         snap.Payment.Method,
			TenderedAmount: snap.Payment.TenderedAmount,
		}
	}
	return view
}

func billView(bill Bill) billDTO {
	view := billDTO{
		ID:                 bill.ID.String(),
		Number:             bill.Number,
		CustomerName:       bill.CustomerName,
		Subtotal:           bill.Subtotal,
		DiscountAmount:     bill.DiscountAmount,
		ServicesTotal:      bill.ServicesTotal,
		GrandTotal:         bill.GrandTotal,
		PaidAmount:         bill.PaidAmount,
		DueAmount:          bill.DueAmount,
		Status:             string(bill.Status),
		PaymentMethod:      bill.PaymentMethod,
		CouponCode:         bill.CouponCode,
		AdditionalServices: bill.AdditionalServices,
		CreatedAt:          bill.CreatedAt,
	}
	if view.AdditionalServices == nil {
		view.AdditionalServices = []pricing.AdditionalService{}
	}
	if bill.CustomerID != uuid.Nil {
		view.CustomerID = bill.CustomerID.String()
	}
	return view
}
