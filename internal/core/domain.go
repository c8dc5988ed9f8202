package core

import (
	"time"
)

const (
	UnitKilogram    Unit = "kg"
	UnitCubicMeter  Unit = "m³"
	UnitMeter       Unit = "m"
	UnitPiece       Unit = "unit"
	UnitLiter       Unit = "l"
	UnitSquareMeter Unit = "m²"
)

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Units lists every accepted unit of measure in display order.
var Units = []Unit{UnitKilogram, UnitCubicMeter, UnitMeter, UnitPiece, UnitLiter, UnitSquareMeter}

// Statuses lists every quote status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusSent, StatusApproved, StatusRejected, StatusCancelled}

type (
	Unit   string
	Status string

	Material struct {
		ID          string    `json:"id"`
		Name        string    `json:"name" validate:"required,notblank,max=100"`
		Unit        Unit      `json:"unit" validate:"required,unit"`
		UnitPrice   float64   `json:"unitPrice" validate:"gte=0"`
		Description string    `json:"description,omitempty" validate:"max=500"`
		Active      bool      `json:"active"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	LineItem struct {
		ID           string   `json:"id,omitempty"`
		MaterialRef  string   `json:"materialRef" validate:"required"`
		MaterialName string   `json:"materialName,omitempty"`
		MaterialUnit Unit     `json:"materialUnit,omitempty"`
		Quantity     float64  `json:"quantity" validate:"gt=0"`
		UnitPrice    float64  `json:"unitPrice" validate:"gte=0"`
		CustomPrice  *float64 `json:"customPrice,omitempty" validate:"omitempty,gte=0"`
		LineSubtotal float64  `json:"lineSubtotal"`
	}

	Labor struct {
		Hours       float64 `json:"hours" validate:"gte=0"`
		RatePerHour float64 `json:"ratePerHour" validate:"gte=0"`
		Total       float64 `json:"total"`
	}

	Painting struct {
		AreaSqMeters   float64 `json:"areaSqMeters" validate:"gte=0"`
		RatePerSqMeter float64 `json:"ratePerSqMeter" validate:"gte=0"`
		Total          float64 `json:"total"`
	}

	Quote struct {
		ID                string     `json:"id"`
		Number            string     `json:"number"`
		Client            string     `json:"client" validate:"required,notblank,max=100"`
		Project           string     `json:"project" validate:"required,notblank,max=500"`
		LineItems         []LineItem `json:"lineItems" validate:"dive"`
		Labor             Labor      `json:"labor"`
		Painting          Painting   `json:"painting"`
		MaterialsSubtotal float64    `json:"materialsSubtotal"`
		GrandTotal        float64    `json:"grandTotal"`
		Status            Status     `json:"status" validate:"required,status"`
		Notes             string     `json:"notes,omitempty" validate:"max=1000"`
		ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
		CreatedAt         time.Time  `json:"createdAt"`
		UpdatedAt         time.Time  `json:"updatedAt"`
	}
)

func (u Unit) IsValid() bool {
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

func (s Status) IsValid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo implements the quote lifecycle:
// draft -> sent -> approved|rejected, and any state except cancelled -> cancelled.
// Staying in the same state is not a transition and reports false.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.IsValid() || !next.IsValid() || s == next {
		return false
	}
	switch next {
	case StatusCancelled:
		return true
	case StatusSent:
		return s == StatusDraft
	case StatusApproved, StatusRejected:
		return s == StatusSent
	default:
		return false
	}
}

// Validate checks field constraints of a catalog entry.
func (m Material) Validate() error {
	return validateStruct(m)
}

// Validate checks field constraints of a quote and its line items.
// Derived totals are not inspected since they are always recomputed.
func (q Quote) Validate() error {
	return validateStruct(q)
}
