package resync

import (
	"encoding/json"

	"github.com/Simplici0/woodshop/internal/pricing"
)

// FromBreakdown shapes a computed breakdown as a cost document so it can be
// merged onto a stored one. components carries the refreshed sub-assembly
// references the breakdown was computed from.
func FromBreakdown(b pricing.CostBreakdown, components []pricing.ComponentRef) Details {
	labor := &Labor{Breakdown: make([]LaborLine, 0, len(b.Labor.Breakdown))}
	for _, line := range b.Labor.Breakdown {
		labor.Breakdown = append(labor.Breakdown, LaborLine{
			Type:   line.Type,
			Hours:  pricing.Number(line.Hours),
			Rate:   pricing.Number(line.Rate),
			Cost:   pricing.Number(line.Cost),
			Detail: line.Detail,
		})
	}
	cost, hours := pricing.Number(b.Labor.Cost), pricing.Number(b.Labor.Hours)
	labor.Cost, labor.Hours = &cost, &hours

	m := b.Materials
	materials := Materials{
		"wood":       mustRaw(m.Wood),
		"sheet":      mustRaw(m.Sheet),
		"hardware":   mustRaw(m.Hardware),
		"upholstery": mustRaw(m.Upholstery),
		"finishing":  mustRaw(m.Finishing),
		"total":      rawNumber(m.Total),
	}

	items := make([]Component, 0, len(components))
	for _, ref := range components {
		var c Component
		if err := json.Unmarshal(mustRaw(ref), &c); err != nil || c == nil {
			continue
		}
		items = append(items, c)
	}

	return Details{
		Materials: materials,
		Labor:     labor,
		CNC: &CNC{
			Runtime: pricing.Number(b.CNC.Runtime),
			Rate:    pricing.Number(b.CNC.Rate),
			Cost:    pricing.Number(b.CNC.Cost),
		},
		Overhead: &Overhead{
			Rate:  pricing.Number(b.Overhead.Rate),
			Hours: pricing.Number(b.Overhead.Hours),
			Cost:  pricing.Number(b.Overhead.Cost),
		},
		Components: ComponentList(items...),
		Extra: map[string]json.RawMessage{
			"componentsCost": rawNumber(b.ComponentsCost),
			"grandTotal":     rawNumber(b.GrandTotal),
		},
	}
}

// GrandTotal reads the stored grand total, if any.
func (d Details) GrandTotal() float64 {
	return pricing.NumberFromJSON(d.Extra["grandTotal"])
}
