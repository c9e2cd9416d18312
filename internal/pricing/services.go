package pricing

import (
	"errors"
	"strings"
)

// ServiceTaxRatePercent is the fixed tax rate applied to ad hoc additional
// services. Additional-service base amounts are tax-exclusive, unlike cart
// line prices.
const ServiceTaxRatePercent = 18

// ErrInvalidService is returned when an additional-service payload is malformed.
var ErrInvalidService = errors.New("invalid additional service")

// AdditionalService is an ad hoc charge attached to a bill during checkout.
// It is never persisted as a catalogue entity; it is serialized into the
// bill's additional-charges field only. Tax is computed once at creation
// time and never recomputed.
type AdditionalService struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	BaseAmount     Money  `json:"baseAmount"`
	TaxRatePercent int    `json:"taxRatePercent"`
	TaxAmount      Money  `json:"taxAmount"`
	TotalAmount    Money  `json:"totalAmount"`
}

// NewAdditionalService validates inputs and derives the tax split.
func NewAdditionalService(id, name, description string, baseAmount Money) (AdditionalService, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(name) == "" {
		return AdditionalService{}, ErrInvalidService
	}
	if baseAmount < 0 {
		return AdditionalService{}, ErrInvalidService
	}
	tax := (baseAmount * ServiceTaxRatePercent) / 100
	return AdditionalService{
		ID:             id,
		Name:           strings.TrimSpace(name),
		Description:    strings.TrimSpace(description),
		BaseAmount:     baseAmount,
		TaxRatePercent: ServiceTaxRatePercent,
		TaxAmount:      tax,
		TotalAmount:    baseAmount + tax,
	}, nil
}
