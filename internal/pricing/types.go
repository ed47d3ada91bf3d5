package pricing

import (
	"bytes"
	"encoding/json"
)

// RateSettings is the rate snapshot every computation prices against.
type RateSettings struct {
	Labor     LaborSettings    `json:"labor"`
	Materials MaterialSettings `json:"materials"`
	CNC       CNCSettings      `json:"cnc"`
	Overhead  OverheadSettings `json:"overhead"`
	Margins   Margins          `json:"margins"`
}

// LaborRate is the settings rate for one labor category.
type LaborRate struct {
	Category string `validate:"required"`
	Rate     Number `validate:"gte=0"`
}

// LaborSettings holds per-category hourly rates and the labor surcharge.
// On the wire it is a single object: category keys map to {"rate": n} and
// the "extraFee" key carries the surcharge percent.
type LaborSettings struct {
	Rates    []LaborRate `validate:"dive"`
	ExtraFee Number      `validate:"gte=0"`
}

// RateFor returns the configured rate for category, or 0.
func (l LaborSettings) RateFor(category string) float64 {
	for _, r := range l.Rates {
		if r.Category == category {
			return amount(r.Rate)
		}
	}
	return 0
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *LaborSettings) UnmarshalJSON(data []byte) error {
	out := LaborSettings{}
	for _, f := range OrderedFields(data) {
		if f.Key == "extraFee" {
			out.ExtraFee = Number(NumberFromJSON(f.Value))
			continue
		}
		var entry struct {
			Rate Number `json:"rate"`
		}
		if err := json.Unmarshal(f.Value, &entry); err != nil {
			entry.Rate = 0
		}
		out.Rates = append(out.Rates, LaborRate{Category: f.Key, Rate: entry.Rate})
	}
	*l = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l LaborSettings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, r := range l.Rates {
		if err := writeMember(&buf, r.Category, struct {
			Rate Number `json:"rate"`
		}{r.Rate}); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeMember(&buf, "extraFee", l.ExtraFee); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WoodPrice is the catalog price of one species/thickness combination.
type WoodPrice struct {
	Cost Number `json:"cost" validate:"gte=0"`
}

// MaterialSettings holds the wood price table and the ordered material catalogs.
type MaterialSettings struct {
	Wood                map[string]map[string]WoodPrice `json:"wood" validate:"dive,dive"`
	WoodWasteFactor     Number                          `json:"woodWasteFactor" validate:"gte=0"`
	Sheet               []SheetStock                    `json:"sheet" validate:"dive"`
	Hardware            []HardwareItem                  `json:"hardware" validate:"dive"`
	UpholsteryMaterials []UpholsteryMaterial            `json:"upholsteryMaterials" validate:"dive"`
	Finishing           []FinishingMaterial             `json:"finishing" validate:"dive"`
}

// SheetStock is a sheet-goods catalog entry.
type SheetStock struct {
	ID            Key    `json:"id" validate:"required"`
	Name          string `json:"name,omitempty"`
	PricePerSheet Number `json:"pricePerSheet" validate:"gte=0"`
}

// HardwareItem is a hardware catalog entry sold in packs.
type HardwareItem struct {
	ID           Key    `json:"id" validate:"required"`
	Name         string `json:"name,omitempty"`
	PricePerPack Number `json:"pricePerPack" validate:"gte=0"`
	UnitsPerPack Number `json:"unitsPerPack" validate:"gte=0"`
}

// UpholsteryMaterial is an upholstery catalog entry priced per square foot.
type UpholsteryMaterial struct {
	ID          Key    `json:"id" validate:"required"`
	Name        string `json:"name,omitempty"`
	CostPerSqFt Number `json:"costPerSqFt" validate:"gte=0"`
}

// FinishingMaterial is a finish sold by container. ContainerSize is in liters
// and Coverage in square feet per liter.
type FinishingMaterial struct {
	ID            Key    `json:"id" validate:"required"`
	Name          string `json:"name,omitempty"`
	ContainerCost Number `json:"containerCost" validate:"gte=0"`
	ContainerSize Number `json:"containerSize" validate:"gte=0"`
	Coverage      Number `json:"coverage" validate:"gte=0"`
}

// CNCSettings holds the default machine rate per hour.
type CNCSettings struct {
	Rate Number `json:"rate" validate:"gte=0"`
}

// OverheadSettings are the monthly figures the overhead recovery rate is derived from.
type OverheadSettings struct {
	MonthlyOverhead  Number `json:"monthlyOverhead" validate:"gte=0"`
	Employees        Number `json:"employees" validate:"gte=0"`
	MonthlyProdHours Number `json:"monthlyProdHours" validate:"gte=0"`
	MonthlyCNCHours  Number `json:"monthlyCNCHours" validate:"gte=0"`
}

// Margins are the wholesale and MSRP margin percentages.
type Margins struct {
	Wholesale Number `json:"wholesale" validate:"gte=0,lte=99.9"`
	MSRP      Number `json:"msrp" validate:"gte=0,lte=99.9"`
}

// LineItemInput is the raw calculator data for a piece, component or custom project.
type LineItemInput struct {
	Labor              LaborInput         `json:"labor"`
	Materials          MaterialsInput     `json:"materials"`
	CNC                CNCInput           `json:"cnc"`
	SelectedComponents Rows[ComponentRef] `json:"selectedComponents,omitempty"`
	Components         Rows[ComponentRef] `json:"components,omitempty"`
}

// LaborEntry is the hours and rate entered for one labor category.
type LaborEntry struct {
	Category string
	Hours    Number
	Rate     Number
}

// LaborInput is the ordered set of labor entries. On the wire it is an
// object keyed by category; key order is preserved.
type LaborInput []LaborEntry

// UnmarshalJSON implements json.Unmarshaler.
func (l *LaborInput) UnmarshalJSON(data []byte) error {
	fields := OrderedFields(data)
	out := make(LaborInput, 0, len(fields))
	for _, f := range fields {
		var entry struct {
			Hours Number `json:"hours"`
			Rate  Number `json:"rate"`
		}
		if err := json.Unmarshal(f.Value, &entry); err != nil {
			continue
		}
		out = append(out, LaborEntry{Category: f.Key, Hours: entry.Hours, Rate: entry.Rate})
	}
	*l = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l LaborInput) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, e.Category, struct {
			Hours Number `json:"hours"`
			Rate  Number `json:"rate"`
		}{e.Hours, e.Rate}); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MaterialsInput groups the material rows of a line item.
type MaterialsInput struct {
	Wood       Rows[WoodRow]     `json:"wood"`
	Sheet      Rows[SheetRow]    `json:"sheet"`
	Hardware   Rows[HardwareRow] `json:"hardware"`
	Upholstery UpholsteryInput   `json:"upholstery"`
	Finishing  FinishingInput    `json:"finishing"`
}

// WoodRow is lumber measured in board feet.
type WoodRow struct {
	Species   Key    `json:"species"`
	Thickness Key    `json:"thickness"`
	BoardFeet Number `json:"boardFeet"`
	Cost      Number `json:"cost"`
}

// SheetRow is a count of sheet goods.
type SheetRow struct {
	SheetID       Key    `json:"sheetId"`
	Quantity      Number `json:"quantity"`
	PricePerSheet Number `json:"pricePerSheet"`
}

// HardwareRow is a count of hardware. Historical records carry the unit
// price under different names; see HardwareUnitPrice.
type HardwareRow struct {
	HardwareID   Key    `json:"hardwareId"`
	Quantity     Number `json:"quantity"`
	PricePerUnit Number `json:"pricePerUnit,omitempty"`
	CostPerUnit  Number `json:"costPerUnit,omitempty"`
	Cost         Number `json:"cost,omitempty"`
}

// UpholsteryInput holds upholstery rows.
type UpholsteryInput struct {
	Items Rows[UpholsteryRow] `json:"items"`
}

// UpholsteryRow is upholstery material measured in square feet.
type UpholsteryRow struct {
	MaterialID  Key    `json:"materialId"`
	SquareFeet  Number `json:"squareFeet"`
	CostPerSqFt Number `json:"costPerSqFt"`
	Cost        Number `json:"cost,omitempty"`
}

// FinishingInput describes a finish applied to a surface measured in square inches.
type FinishingInput struct {
	MaterialID   Key    `json:"materialId"`
	SurfaceArea  Number `json:"surfaceArea"`
	Coats        Number `json:"coats"`
	Coverage     Number `json:"coverage"`
	CostPerLiter Number `json:"costPerLiter"`
}

// CNCInput is machine runtime in hours with an optional rate override.
type CNCInput struct {
	Runtime Number `json:"runtime"`
	Rate    Number `json:"rate"`
}

// ComponentRef references another priced item consumed as a sub-assembly.
type ComponentRef struct {
	ID       Key    `json:"id,omitempty"`
	LegacyID Key    `json:"_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Cost     Number `json:"cost"`
	Quantity Number `json:"quantity"`
}

// Ref returns the component identity, preferring id over the legacy _id.
func (c ComponentRef) Ref() string {
	if c.ID != "" {
		return string(c.ID)
	}
	return string(c.LegacyID)
}

// CostBreakdown is the itemized result of Compute.
type CostBreakdown struct {
	Labor          LaborCost     `json:"labor"`
	Materials      MaterialsCost `json:"materials"`
	CNC            CNCCost       `json:"cnc"`
	Overhead       OverheadCost  `json:"overhead"`
	ComponentsCost float64       `json:"componentsCost"`
	GrandTotal     float64       `json:"grandTotal"`
}

// LaborLine is one labor category in the breakdown.
type LaborLine struct {
	Type   string  `json:"type"`
	Hours  float64 `json:"hours"`
	Rate   float64 `json:"rate"`
	Cost   float64 `json:"cost"`
	Detail string  `json:"detail,omitempty"`
}

// LaborCost is the labor block of a breakdown. Hours excludes the surcharge line.
type LaborCost struct {
	Breakdown []LaborLine `json:"breakdown"`
	Cost      float64     `json:"cost"`
	Hours     float64     `json:"hours"`
}

// WoodCost splits lumber cost into base and waste.
type WoodCost struct {
	BaseCost  float64 `json:"baseCost"`
	WasteCost float64 `json:"wasteCost"`
	TotalCost float64 `json:"totalCost"`
}

// LineCost is a single material category total.
type LineCost struct {
	Cost float64 `json:"cost"`
}

// MaterialsCost is the materials block of a breakdown.
type MaterialsCost struct {
	Wood       WoodCost `json:"wood"`
	Sheet      LineCost `json:"sheet"`
	Hardware   LineCost `json:"hardware"`
	Upholstery LineCost `json:"upholstery"`
	Finishing  LineCost `json:"finishing"`
	Total      float64  `json:"total"`
}

// CNCCost is the machine block of a breakdown.
type CNCCost struct {
	Runtime float64 `json:"runtime"`
	Rate    float64 `json:"rate"`
	Cost    float64 `json:"cost"`
}

// OverheadCost is the overhead recovery block of a breakdown.
type OverheadCost struct {
	Rate  float64 `json:"rate"`
	Hours float64 `json:"hours"`
	Cost  float64 `json:"cost"`
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
