// Package export renders price sheet items as text, XLSX and PDF.
package export

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/woodshop/internal/pricesheet"
	"github.com/Simplici0/woodshop/internal/pricing"
	"github.com/Simplici0/woodshop/internal/resync"
)

// materialOrder fixes the display order of material categories.
var materialOrder = []struct {
	key, label string
}{
	{"wood", "Wood"},
	{"sheet", "Sheet goods"},
	{"hardware", "Hardware"},
	{"upholstery", "Upholstery"},
	{"finishing", "Finishing"},
}

// Line is one labelled amount.
type Line struct {
	Label string
	Cost  float64
}

// Summary is the flattened view of an item every format renders.
type Summary struct {
	Label      string
	Kind       pricesheet.Kind
	Version    int64
	Labor      []resync.LaborLine
	LaborCost  float64
	Materials  []Line
	Material   float64
	CNC        resync.CNC
	Overhead   resync.Overhead
	Components float64
	Cost       float64
	Prices     pricing.Quote
	PricedAt   time.Time
}

// Summarize reads the stored cost document of item. Missing blocks read as zero.
func Summarize(item pricesheet.Item) Summary {
	d := item.Details
	s := Summary{
		Label:      item.Label(),
		Kind:       item.Kind(),
		Version:    item.Version,
		Components: pricing.NumberFromJSON(d.Extra["componentsCost"]),
		Cost:       item.Cost,
		Prices:     item.Prices,
		PricedAt:   item.UpdatedAt,
	}
	if d.Labor != nil {
		s.Labor = d.Labor.Breakdown
		if d.Labor.Cost != nil {
			s.LaborCost = d.Labor.Cost.Float()
		}
	}
	if d.CNC != nil {
		s.CNC = *d.CNC
	}
	if d.Overhead != nil {
		s.Overhead = *d.Overhead
	}

	var sum float64
	for _, m := range materialOrder {
		cost := materialCost(d.Materials[m.key])
		sum += cost
		if cost > 0 {
			s.Materials = append(s.Materials, Line{Label: m.label, Cost: cost})
		}
	}
	s.Material = firstPositive(
		pricing.NumberFromJSON(d.Materials["total"]),
		pricing.NumberFromJSON(d.Materials["totalCost"]),
		sum,
	)
	return s
}

// materialCost reads a category subtotal object, or sums a row array.
func materialCost(raw json.RawMessage) float64 {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		return firstPositive(
			pricing.NumberFromJSON(obj["totalCost"]),
			pricing.NumberFromJSON(obj["cost"]),
		)
	}
	var total float64
	for _, row := range pricing.RawList(raw) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(row, &fields); err != nil {
			continue
		}
		total += firstPositive(
			pricing.NumberFromJSON(fields["totalCost"]),
			pricing.NumberFromJSON(fields["cost"]),
		)
	}
	return total
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// Money rounds an amount to cents for display.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func moneyString(v float64) string {
	return Money(v).StringFixed(2)
}
