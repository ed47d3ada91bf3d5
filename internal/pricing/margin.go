package pricing

import "math"

// DefaultMaxMargin is the highest margin percent ClampMargin allows by default.
const DefaultMaxMargin = 99.9

// PriceFromCost applies a margin percent to cost. A zero margin returns cost.
//
// The margin must already be clamped below 100 by the caller (see ClampMargin);
// at 100 or more the markup is infinite or negative.
func PriceFromCost(cost, marginPercent float64) float64 {
	if marginPercent == 0 || math.IsNaN(marginPercent) {
		return cost
	}
	markup := 1 / (1 - marginPercent/100)
	return cost * markup
}

// MarginFromMarkup converts a markup multiplier back to a margin percent.
// Markups at or below 1 have no margin.
func MarginFromMarkup(markup float64) float64 {
	if !(markup > 1) {
		return 0
	}
	return (markup - 1) / markup * 100
}

// MarkupFromMargin returns the multiplier a margin percent applies to cost.
func MarkupFromMargin(marginPercent float64) float64 {
	return PriceFromCost(1, marginPercent)
}

// ClampMargin bounds a margin percent to [0, max]. A non-positive max uses
// DefaultMaxMargin.
func ClampMargin(marginPercent, max float64) float64 {
	if max <= 0 || max >= 100 {
		max = DefaultMaxMargin
	}
	switch {
	case math.IsNaN(marginPercent), marginPercent < 0:
		return 0
	case marginPercent > max:
		return max
	}
	return marginPercent
}

// Quote is cost carried through the wholesale and MSRP margins.
type Quote struct {
	Cost            float64 `json:"cost"`
	WholesaleMargin float64 `json:"wholesaleMargin"`
	MSRPMargin      float64 `json:"msrpMargin"`
	Wholesale       float64 `json:"wholesale"`
	MSRP            float64 `json:"msrp"`
	WholesaleMarkup float64 `json:"wholesaleMarkup"`
	MSRPMarkup      float64 `json:"msrpMarkup"`
}

// QuoteFor prices cost at the given margins after clamping them to
// [0, maxMargin]. The MSRP margin applies on top of the wholesale price,
// not on top of cost.
func QuoteFor(cost float64, margins Margins, maxMargin float64) Quote {
	wholesaleMargin := ClampMargin(margins.Wholesale.Float(), maxMargin)
	msrpMargin := ClampMargin(margins.MSRP.Float(), maxMargin)
	wholesale := PriceFromCost(cost, wholesaleMargin)
	return Quote{
		Cost:            cost,
		WholesaleMargin: wholesaleMargin,
		MSRPMargin:      msrpMargin,
		Wholesale:       wholesale,
		MSRP:            PriceFromCost(wholesale, msrpMargin),
		WholesaleMarkup: MarkupFromMargin(wholesaleMargin),
		MSRPMarkup:      MarkupFromMargin(msrpMargin),
	}
}
