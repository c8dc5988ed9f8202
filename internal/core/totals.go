package core

import (
	"fmt"
	"math"
)

// EffectivePrice returns the custom price when present, the unit price otherwise.
func (li LineItem) EffectivePrice() float64 {
	if li.CustomPrice != nil {
		return *li.CustomPrice
	}
	return li.UnitPrice
}

// Totals holds the derived monetary fields of a quote.
type Totals struct {
	LineSubtotals     []float64
	MaterialsSubtotal float64
	LaborTotal        float64
	PaintingTotal     float64
	GrandTotal        float64
}

// CalculateTotals derives line subtotals and quote totals. It never fails:
// empty input yields zero totals.
func CalculateTotals(items []LineItem, labor Labor, painting Painting) Totals {
	t := Totals{LineSubtotals: make([]float64, len(items))}
	for i, item := range items {
		t.LineSubtotals[i] = item.EffectivePrice() * item.Quantity
		t.MaterialsSubtotal += t.LineSubtotals[i]
	}
	t.LaborTotal = labor.Hours * labor.RatePerHour
	t.PaintingTotal = painting.AreaSqMeters * painting.RatePerSqMeter
	t.GrandTotal = t.MaterialsSubtotal + t.LaborTotal + t.PaintingTotal
	return t
}

// ComputeTotals overwrites every derived field of q, discarding whatever
// the caller supplied for them.
func ComputeTotals(q *Quote) Totals {
	t := CalculateTotals(q.LineItems, q.Labor, q.Painting)
	for i := range q.LineItems {
		q.LineItems[i].LineSubtotal = t.LineSubtotals[i]
	}
	q.MaterialsSubtotal = t.MaterialsSubtotal
	q.Labor.Total = t.LaborTotal
	q.Painting.Total = t.PaintingTotal
	q.GrandTotal = t.GrandTotal
	return t
}

// CheckFinite rejects totals that overflowed to infinity. Such values cannot
// be stored meaningfully or encoded as JSON.
func (t Totals) CheckFinite() error {
	ve := &ValidationError{Fields: map[string]string{}}
	for i, v := range t.LineSubtotals {
		if !isFinite(v) {
			ve.Fields[fmt.Sprintf("lineItems[%d].lineSubtotal", i)] = "is too large"
		}
	}
	for field, v := range map[string]float64{
		"materialsSubtotal": t.MaterialsSubtotal,
		"labor.total":       t.LaborTotal,
		"painting.total":    t.PaintingTotal,
		"grandTotal":        t.GrandTotal,
	} {
		if !isFinite(v) {
			ve.Fields[field] = "is too large"
		}
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
