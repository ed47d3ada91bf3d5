package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/woodshop/internal/pricesheet"
	"github.com/Simplici0/woodshop/internal/pricing"
	"github.com/Simplici0/woodshop/internal/resync"
)

func pricedItem(t *testing.T) pricesheet.Item {
	t.Helper()

	rates := pricing.RateSettings{
		Labor:    pricing.LaborSettings{Rates: []pricing.LaborRate{{Category: "assembly", Rate: 25}}, ExtraFee: 8},
		CNC:      pricing.CNCSettings{Rate: 60},
		Overhead: pricing.OverheadSettings{MonthlyOverhead: 3000, Employees: 1, MonthlyProdHours: 200},
		Margins:  pricing.Margins{Wholesale: 40, MSRP: 50},
	}
	in := pricing.LineItemInput{
		Labor: pricing.LaborInput{{Category: "assembly", Hours: 2}},
		Materials: pricing.MaterialsInput{
			Wood: pricing.Rows[pricing.WoodRow]{{BoardFeet: 10, Cost: 5}},
		},
		CNC:                pricing.CNCInput{Runtime: 1},
		SelectedComponents: pricing.Rows[pricing.ComponentRef]{{ID: "drawer", Cost: 12.345, Quantity: 2}},
	}
	b := pricing.Compute(in, rates)
	return pricesheet.Item{
		ID:        "item-1",
		Identity:  pricesheet.Identity{Collection: "Ridge", PieceNumber: "104", Variation: "W"},
		Input:     in,
		Details:   resync.FromBreakdown(b, in.ComponentRefs()),
		Cost:      b.GrandTotal,
		Prices:    pricing.QuoteFor(b.GrandTotal, rates.Margins, pricing.DefaultMaxMargin),
		Version:   2,
		UpdatedAt: time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(pricedItem(t))

	require.Equal(t, "Ridge 104-W", s.Label)
	require.Equal(t, pricesheet.KindPiece, s.Kind)
	require.Equal(t, 54.0, s.LaborCost)
	require.Equal(t, 50.0, s.Material)
	require.Equal(t, []Line{{Label: "Wood", Cost: 50}}, s.Materials)
	require.Equal(t, 60.0, s.CNC.Cost.Float())
	// 3000 / 200 h = 15/h over 3 h.
	require.Equal(t, 45.0, s.Overhead.Cost.Float())
	require.InDelta(t, 24.69, s.Components, 1e-9)
}

func TestSummarize_LegacyRowArrays(t *testing.T) {
	var d resync.Details
	require.NoError(t, json.Unmarshal([]byte(`{"materials":{"hardware":[{"cost":4},{"cost":"6"}],"sheet":{"cost":30}}}`), &d))

	s := Summarize(pricesheet.Item{Details: d})
	require.Equal(t, []Line{{Label: "Sheet goods", Cost: 30}, {Label: "Hardware", Cost: 10}}, s.Materials)
	require.Equal(t, 40.0, s.Material)
}

func TestText(t *testing.T) {
	out := Text(pricedItem(t))

	require.True(t, strings.HasPrefix(out, "Ridge 104-W (piece, v2)\n"))
	require.Contains(t, out, "Assembly 2.00h @ 25.00")
	require.Contains(t, out, "Labor Surcharge (8% of base labor)")
	require.Contains(t, out, "Components")
	require.Contains(t, out, "24.69")
	require.Contains(t, out, "Priced 2026-05-02T08:00:00Z")
}

func TestMoneyRoundsAtDisplayOnly(t *testing.T) {
	require.Equal(t, "0.30", moneyString(0.1+0.2))
	require.Equal(t, "2.68", moneyString(2.675))
	require.Equal(t, "0.00", moneyString(0))
}

func TestWriteXLSX(t *testing.T) {
	item := pricedItem(t)
	component := pricesheet.Item{
		ID:       "c",
		Identity: pricesheet.Identity{IsComponent: true, ComponentName: "Drawer"},
		Cost:     12.345,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []pricesheet.Item{component, item}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, xlsxHeader, rows[0])
	require.Equal(t, []string{"component", "Drawer", "12.35"}, rows[1][:3])
	require.Equal(t, "Ridge 104-W", rows[2][1])
	require.Equal(t, "2", rows[2][10])
	require.Equal(t, "2026-05-02T08:00:00Z", rows[2][11])
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))
	require.NotZero(t, buf.Len())
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, pricedItem(t)))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
