package pricing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func shopSettings() RateSettings {
	return RateSettings{
		Labor: LaborSettings{
			Rates: []LaborRate{
				{Category: "stockProduction", Rate: 20},
				{Category: "cncOperator", Rate: 30},
				{Category: "assembly", Rate: 25},
			},
			ExtraFee: 8,
		},
		Materials: MaterialSettings{
			Wood: map[string]map[string]WoodPrice{
				"walnut": {"4/4": {Cost: 12}, "8/4": {Cost: 15}},
			},
			WoodWasteFactor: 20,
			Sheet:           []SheetStock{{ID: "baltic-18", PricePerSheet: 90}},
			Hardware:        []HardwareItem{{ID: "hinge", PricePerPack: 20, UnitsPerPack: 10}},
			UpholsteryMaterials: []UpholsteryMaterial{
				{ID: "felt", CostPerSqFt: 4},
			},
			Finishing: []FinishingMaterial{
				{ID: "oil", ContainerCost: 50, ContainerSize: 2.5, Coverage: 20},
			},
		},
		CNC:      CNCSettings{Rate: 60},
		Overhead: OverheadSettings{MonthlyOverhead: 9000, Employees: 3, MonthlyProdHours: 160, MonthlyCNCHours: 120},
		Margins:  Margins{Wholesale: 40, MSRP: 50},
	}
}

func sideTable() LineItemInput {
	return LineItemInput{
		Labor: LaborInput{
			{Category: "stockProduction", Hours: 6, Rate: 20},
			{Category: "assembly", Hours: 2.5},
			{Category: "cncOperator", Hours: 0, Rate: 30},
		},
		Materials: MaterialsInput{
			Wood:     Rows[WoodRow]{{Species: "walnut", Thickness: "4/4", BoardFeet: 14, Cost: 9}},
			Sheet:    Rows[SheetRow]{{SheetID: "baltic-18", Quantity: 1}},
			Hardware: Rows[HardwareRow]{{HardwareID: "hinge", Quantity: 4}},
			Upholstery: UpholsteryInput{Items: Rows[UpholsteryRow]{
				{MaterialID: "felt", SquareFeet: 3},
			}},
			Finishing: FinishingInput{MaterialID: "oil", SurfaceArea: 2880, Coats: 2},
		},
		CNC:                CNCInput{Runtime: 1.5},
		SelectedComponents: Rows[ComponentRef]{{ID: "drawer", Cost: 45, Quantity: 2}},
	}
}

func TestCompute_SideTable(t *testing.T) {
	got := Compute(sideTable(), shopSettings())

	// 6h x 20 + 2.5h x 25 = 182.5, plus 8% surcharge.
	nearlyEqual(t, "labor hours", got.Labor.Hours, 8.5)
	nearlyEqual(t, "labor cost", got.Labor.Cost, 182.5*1.08)
	require.Len(t, got.Labor.Breakdown, 3)
	require.Equal(t, "Stock Production", got.Labor.Breakdown[0].Type)
	require.Equal(t, "Assembly", got.Labor.Breakdown[1].Type)
	require.Equal(t, 25.0, got.Labor.Breakdown[1].Rate)
	require.Equal(t, LaborSurchargeType, got.Labor.Breakdown[2].Type)

	// catalog cost 12 replaces the stored 9.
	nearlyEqual(t, "wood base", got.Materials.Wood.BaseCost, 168)
	nearlyEqual(t, "wood waste", got.Materials.Wood.WasteCost, 33.6)
	nearlyEqual(t, "sheet", got.Materials.Sheet.Cost, 90)
	nearlyEqual(t, "hardware", got.Materials.Hardware.Cost, 8)
	nearlyEqual(t, "upholstery", got.Materials.Upholstery.Cost, 12)
	// 20 sq ft x 2 coats / 20 sqft/L = 2 L, x1.1 waste, at 20/L.
	nearlyEqual(t, "finishing", got.Materials.Finishing.Cost, 44)
	nearlyEqual(t, "materials total", got.Materials.Total, 168+33.6+90+8+12+44)

	nearlyEqual(t, "cnc cost", got.CNC.Cost, 90)
	nearlyEqual(t, "overhead rate", got.Overhead.Rate, 15)
	nearlyEqual(t, "overhead hours", got.Overhead.Hours, 10)
	nearlyEqual(t, "overhead cost", got.Overhead.Cost, 150)
	nearlyEqual(t, "components", got.ComponentsCost, 90)
}

func TestCompute_IsDeterministic(t *testing.T) {
	first := Compute(sideTable(), shopSettings())
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Compute(sideTable(), shopSettings()))
	}

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(Compute(sideTable(), shopSettings()))
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestCompute_GrandTotalIsExactSum(t *testing.T) {
	inputs := []LineItemInput{
		{},
		sideTable(),
		{Labor: LaborInput{{Category: "assembly", Hours: 0.3333}}, CNC: CNCInput{Runtime: 0.1, Rate: 0.7}},
		{Materials: MaterialsInput{Finishing: FinishingInput{SurfaceArea: 100.1, Coats: 3, Coverage: 7, CostPerLiter: 19.99}}},
	}
	for _, in := range inputs {
		b := Compute(in, shopSettings())
		sum := b.Labor.Cost + b.Materials.Total + b.CNC.Cost + b.Overhead.Cost + b.ComponentsCost
		require.Equal(t, sum, b.GrandTotal)
	}
}

func TestCompute_ZeroInputFloor(t *testing.T) {
	want := CostBreakdown{Labor: LaborCost{Breakdown: []LaborLine{}}}
	require.Equal(t, want, Compute(LineItemInput{}, RateSettings{}))

	var in LineItemInput
	var settings RateSettings
	require.NoError(t, json.Unmarshal([]byte(`{}`), &in))
	require.NoError(t, json.Unmarshal([]byte(`{}`), &settings))
	require.Equal(t, want, Compute(in, settings))
}

func TestCompute_PreserveWoodOverrides(t *testing.T) {
	in := LineItemInput{Materials: MaterialsInput{Wood: Rows[WoodRow]{
		{Species: "walnut", Thickness: "8/4", BoardFeet: 10, Cost: 11},
		{Species: "walnut", Thickness: "8/4", BoardFeet: 10},
	}}}
	settings := RateSettings{Materials: MaterialSettings{Wood: shopSettings().Materials.Wood}}

	refreshed := Compute(in, settings)
	nearlyEqual(t, "refreshed base", refreshed.Materials.Wood.BaseCost, 300)

	preserved := Compute(in, settings, PreserveWoodOverrides())
	nearlyEqual(t, "preserved base", preserved.Materials.Wood.BaseCost, 260)
}

func TestCompute_ComponentsFallBackToStoredList(t *testing.T) {
	in := LineItemInput{Components: Rows[ComponentRef]{{ID: "seat", Cost: 30}, {ID: "arm", Cost: 12, Quantity: 2}}}
	nearlyEqual(t, "components", Compute(in, RateSettings{}).ComponentsCost, 54)
}

func TestCompute_LenientDocument(t *testing.T) {
	doc := `{
		"labor": {"stockProduction": {"hours": "10", "rate": 20}, "cncOperator": {"hours": 0, "rate": 30}, "finishing": "oops"},
		"materials": {
			"wood": [{"boardFeet": 10, "cost": 5}, "garbage"],
			"hardware": {"1": {"quantity": 3, "cost": 12}, "0": {"quantity": 5, "costPerUnit": "2"}},
			"sheet": null,
			"finishing": {"surfaceArea": "NaN", "coats": 2, "coverage": 100}
		},
		"cnc": {"runtime": true, "rate": {}}
	}`
	var in LineItemInput
	require.NoError(t, json.Unmarshal([]byte(doc), &in))

	require.Len(t, in.Labor, 2)
	require.Equal(t, "stockProduction", in.Labor[0].Category)
	require.Len(t, in.Materials.Hardware, 2)
	require.Equal(t, Number(5), in.Materials.Hardware[0].Quantity)

	got := Compute(in, RateSettings{})
	nearlyEqual(t, "labor", got.Labor.Cost, 200)
	nearlyEqual(t, "wood", got.Materials.Wood.TotalCost, 50)
	nearlyEqual(t, "hardware", got.Materials.Hardware.Cost, 22)
	nearlyEqual(t, "finishing", got.Materials.Finishing.Cost, 0)
	nearlyEqual(t, "cnc", got.CNC.Cost, 0)
	require.False(t, math.IsNaN(got.GrandTotal))
}

func TestLaborInput_RoundTripKeepsOrder(t *testing.T) {
	in := LaborInput{
		{Category: "upholstery", Hours: 1, Rate: 2},
		{Category: "assembly", Hours: 3, Rate: 4},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	require.Equal(t, `{"upholstery":{"hours":1,"rate":2},"assembly":{"hours":3,"rate":4}}`, string(raw))

	var back LaborInput
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, in, back)
}

func TestLaborSettings_ExtraFeeKey(t *testing.T) {
	var s LaborSettings
	require.NoError(t, json.Unmarshal([]byte(`{"cncOperator":{"rate":31},"extraFee":"8"}`), &s))
	require.Equal(t, Number(8), s.ExtraFee)
	require.Equal(t, 31.0, s.RateFor("cncOperator"))
	require.Equal(t, 0.0, s.RateFor("assembly"))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"cncOperator":{"rate":31},"extraFee":8}`, string(raw))
}
