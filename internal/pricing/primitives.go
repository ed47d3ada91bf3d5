package pricing

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// LaborSurchargeType labels the synthetic surcharge line in a labor breakdown.
	LaborSurchargeType = "Labor Surcharge"

	// squareInchesPerSquareFoot converts finishing surface area input.
	squareInchesPerSquareFoot = 144.0
	// finishingWasteMultiplier adds 10% to the liters of finish required.
	finishingWasteMultiplier = 1.1
)

// laborLabels maps internal category keys whose display name is not a plain
// capitalization of the key.
var laborLabels = map[string]string{
	"stockProduction": "Stock Production",
	"cncOperator":     "CNC Operator",
}

// LaborLabel returns the display label for a labor category key.
func LaborLabel(category string) string {
	if label, ok := laborLabels[category]; ok {
		return label
	}
	r, size := utf8.DecodeRuneInString(category)
	if r == utf8.RuneError {
		return category
	}
	return string(unicode.ToUpper(r)) + category[size:]
}

// Labor prices every category with positive hours. The entry's own rate wins;
// a zero rate falls back to the settings rate for the category. When the
// settings carry a positive extraFee, a surcharge line is appended.
func Labor(entries LaborInput, settings LaborSettings) LaborCost {
	out := LaborCost{Breakdown: make([]LaborLine, 0, len(entries)+1)}
	for _, e := range entries {
		hours := amount(e.Hours)
		if hours <= 0 {
			continue
		}
		rate := amount(e.Rate)
		if rate == 0 {
			rate = settings.RateFor(e.Category)
		}
		cost := hours * rate
		out.Breakdown = append(out.Breakdown, LaborLine{
			Type:  LaborLabel(e.Category),
			Hours: hours,
			Rate:  rate,
			Cost:  cost,
		})
		out.Hours += hours
		out.Cost += cost
	}

	if fee := amount(settings.ExtraFee); fee > 0 {
		surcharge := out.Cost * fee / 100
		out.Breakdown = append(out.Breakdown, LaborLine{
			Type:   LaborSurchargeType,
			Cost:   surcharge,
			Detail: fmt.Sprintf("%s%% of base labor", trimFloat(fee)),
		})
		out.Cost += surcharge
	}
	return out
}

// Wood prices lumber rows. A row whose species and thickness resolve to a
// positively priced wood table entry takes the catalog cost per board foot,
// unless preserveOverrides is set and the row already carries a positive cost.
func Wood(rows []WoodRow, settings MaterialSettings, preserveOverrides bool) WoodCost {
	var base float64
	for _, row := range rows {
		cost := amount(row.Cost)
		if price, ok := woodPrice(settings, row); ok && !(preserveOverrides && cost > 0) {
			cost = price
		}
		base += amount(row.BoardFeet) * cost
	}
	waste := base * amount(settings.WoodWasteFactor) / 100
	return WoodCost{BaseCost: base, WasteCost: waste, TotalCost: base + waste}
}

func woodPrice(settings MaterialSettings, row WoodRow) (float64, bool) {
	if row.Species == "" || row.Thickness == "" {
		return 0, false
	}
	thicknesses, ok := settings.Wood[string(row.Species)]
	if !ok {
		return 0, false
	}
	price, ok := thicknesses[string(row.Thickness)]
	if !ok || amount(price.Cost) <= 0 {
		return 0, false
	}
	return amount(price.Cost), true
}

// Sheet prices sheet goods. Quantity defaults to 1; a positively priced
// catalog entry overrides the stored price per sheet.
func Sheet(rows []SheetRow, catalog []SheetStock) float64 {
	var total float64
	for _, row := range rows {
		qty := amount(row.Quantity)
		if qty == 0 {
			qty = 1
		}
		price := amount(row.PricePerSheet)
		if stock, ok := findSheet(catalog, row.SheetID); ok && amount(stock.PricePerSheet) > 0 {
			price = amount(stock.PricePerSheet)
		}
		total += qty * price
	}
	return total
}

func findSheet(catalog []SheetStock, id Key) (SheetStock, bool) {
	if id == "" {
		return SheetStock{}, false
	}
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return SheetStock{}, false
}

// UnitPriceSource names where a hardware unit price came from.
type UnitPriceSource string

// Hardware unit price sources, in resolution order.
const (
	UnitPriceCatalog          UnitPriceSource = "catalog"
	UnitPricePricePerUnit     UnitPriceSource = "pricePerUnit"
	UnitPriceCostPerUnit      UnitPriceSource = "costPerUnit"
	UnitPriceCostOverQuantity UnitPriceSource = "cost/quantity"
	UnitPriceNone             UnitPriceSource = "none"
)

type unitPriceRule struct {
	source  UnitPriceSource
	resolve func(row HardwareRow, catalog []HardwareItem) float64
}

// hardwareUnitPriceChain is the resolution order for hardware unit prices.
// The first rule yielding a positive price wins.
var hardwareUnitPriceChain = []unitPriceRule{
	{UnitPriceCatalog, func(row HardwareRow, catalog []HardwareItem) float64 {
		item, ok := findHardware(catalog, row.HardwareID)
		if !ok {
			return 0
		}
		units := amount(item.UnitsPerPack)
		if units == 0 {
			units = 1
		}
		return amount(item.PricePerPack) / units
	}},
	{UnitPricePricePerUnit, func(row HardwareRow, _ []HardwareItem) float64 {
		return amount(row.PricePerUnit)
	}},
	{UnitPriceCostPerUnit, func(row HardwareRow, _ []HardwareItem) float64 {
		return amount(row.CostPerUnit)
	}},
	{UnitPriceCostOverQuantity, func(row HardwareRow, _ []HardwareItem) float64 {
		qty := amount(row.Quantity)
		if qty == 0 {
			return 0
		}
		return amount(row.Cost) / qty
	}},
}

// HardwareUnitPrice resolves the unit price of a hardware row and reports
// which rule produced it.
func HardwareUnitPrice(row HardwareRow, catalog []HardwareItem) (float64, UnitPriceSource) {
	for _, rule := range hardwareUnitPriceChain {
		if price := rule.resolve(row, catalog); price > 0 {
			return price, rule.source
		}
	}
	return 0, UnitPriceNone
}

// Hardware prices hardware rows as quantity times resolved unit price.
func Hardware(rows []HardwareRow, catalog []HardwareItem) float64 {
	var total float64
	for _, row := range rows {
		price, _ := HardwareUnitPrice(row, catalog)
		total += amount(row.Quantity) * price
	}
	return total
}

func findHardware(catalog []HardwareItem, id Key) (HardwareItem, bool) {
	if id == "" {
		return HardwareItem{}, false
	}
	for _, h := range catalog {
		if h.ID == id {
			return h, true
		}
	}
	return HardwareItem{}, false
}

// Upholstery prices upholstery rows by square feet, preferring the catalog
// cost per square foot over the stored one.
func Upholstery(rows []UpholsteryRow, catalog []UpholsteryMaterial) float64 {
	var total float64
	for _, row := range rows {
		price := amount(row.CostPerSqFt)
		if m, ok := findUpholstery(catalog, row.MaterialID); ok && amount(m.CostPerSqFt) > 0 {
			price = amount(m.CostPerSqFt)
		}
		total += amount(row.SquareFeet) * price
	}
	return total
}

func findUpholstery(catalog []UpholsteryMaterial, id Key) (UpholsteryMaterial, bool) {
	if id == "" {
		return UpholsteryMaterial{}, false
	}
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return UpholsteryMaterial{}, false
}

// Finishing prices a finish. Surface area is in square inches and coverage in
// square feet per liter; a fixed 10% waste is added to the liters required.
// Without surface area, coats and coverage the cost is 0. The material id is
// optional: without one the stored costPerLiter prices the finish. When the
// id resolves in the catalog, cost per liter is containerCost/containerSize
// and the catalog coverage fills in a missing one.
func Finishing(in FinishingInput, catalog []FinishingMaterial) float64 {
	area := amount(in.SurfaceArea)
	coats := amount(in.Coats)
	coverage := amount(in.Coverage)
	costPerLiter := amount(in.CostPerLiter)

	if m, ok := findFinishing(catalog, in.MaterialID); ok {
		if size := amount(m.ContainerSize); size > 0 {
			costPerLiter = amount(m.ContainerCost) / size
		}
		if coverage == 0 {
			coverage = amount(m.Coverage)
		}
	}
	if area == 0 || coats == 0 || coverage == 0 {
		return 0
	}

	areaSqFt := area / squareInchesPerSquareFoot
	liters := areaSqFt * coats / coverage
	return liters * finishingWasteMultiplier * costPerLiter
}

func findFinishing(catalog []FinishingMaterial, id Key) (FinishingMaterial, bool) {
	if id == "" {
		return FinishingMaterial{}, false
	}
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return FinishingMaterial{}, false
}

// CNC prices machine runtime; a positive rate on the line item overrides the settings rate.
func CNC(in CNCInput, settings CNCSettings) CNCCost {
	runtime := amount(in.Runtime)
	rate := amount(in.Rate)
	if rate == 0 {
		rate = amount(settings.Rate)
	}
	return CNCCost{Runtime: runtime, Rate: rate, Cost: runtime * rate}
}

// OverheadRate is monthly overhead spread over the month's available
// production hours (employees × production hours + CNC hours).
func OverheadRate(o OverheadSettings) float64 {
	capacity := amount(o.Employees)*amount(o.MonthlyProdHours) + amount(o.MonthlyCNCHours)
	if capacity <= 0 {
		return 0
	}
	return amount(o.MonthlyOverhead) / capacity
}

// Overhead allocates overhead to hours of labor and machine time.
func Overhead(settings OverheadSettings, hours float64) OverheadCost {
	rate := OverheadRate(settings)
	return OverheadCost{Rate: rate, Hours: hours, Cost: rate * hours}
}

// ComponentsCost rolls up sub-assembly costs; quantity defaults to 1.
func ComponentsCost(refs []ComponentRef) float64 {
	var total float64
	for _, c := range refs {
		qty := amount(c.Quantity)
		if qty == 0 {
			qty = 1
		}
		total += amount(c.Cost) * qty
	}
	return total
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
