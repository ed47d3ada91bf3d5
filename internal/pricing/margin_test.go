package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriceFromCost(t *testing.T) {
	require.Equal(t, 100.0, PriceFromCost(100, 0))
	require.Equal(t, 100.0, PriceFromCost(100, math.NaN()))
	nearlyEqual(t, "40% margin", PriceFromCost(60, 40), 100)
	nearlyEqual(t, "50% margin", PriceFromCost(100, 50), 200)
}

func TestMarginFromMarkup(t *testing.T) {
	require.Zero(t, MarginFromMarkup(1))
	require.Zero(t, MarginFromMarkup(0.5))
	require.Zero(t, MarginFromMarkup(math.NaN()))
	nearlyEqual(t, "2x markup", MarginFromMarkup(2), 50)
}

func TestMarginRoundTrip(t *testing.T) {
	for m := 0.0; m <= 99; m += 0.5 {
		got := MarginFromMarkup(PriceFromCost(1, m) / 1)
		if math.Abs(got-m) > 1e-9 {
			t.Fatalf("margin %v round-tripped to %v", m, got)
		}
	}
}

func TestClampMargin(t *testing.T) {
	require.Equal(t, 0.0, ClampMargin(-5, 99.9))
	require.Equal(t, 99.9, ClampMargin(100, 99.9))
	require.Equal(t, 99.9, ClampMargin(150, 0))
	require.Equal(t, 80.0, ClampMargin(95, 80))
	require.Equal(t, 35.0, ClampMargin(35, 99.9))
	require.Equal(t, 0.0, ClampMargin(math.NaN(), 99.9))
}

func TestQuoteFor_MSRPCompoundsOnWholesale(t *testing.T) {
	q := QuoteFor(60, Margins{Wholesale: 40, MSRP: 50}, DefaultMaxMargin)

	nearlyEqual(t, "wholesale", q.Wholesale, 100)
	nearlyEqual(t, "msrp", q.MSRP, 200)
	require.Equal(t, 60.0, q.Cost)
	require.Equal(t, 40.0, q.WholesaleMargin)
	nearlyEqual(t, "wholesale markup", q.WholesaleMarkup, 1/0.6)
	nearlyEqual(t, "msrp markup", q.MSRPMarkup, 2)
}

func TestQuoteFor_ClampsBeforeConverting(t *testing.T) {
	q := QuoteFor(10, Margins{Wholesale: 100, MSRP: -20}, DefaultMaxMargin)

	require.Equal(t, 99.9, q.WholesaleMargin)
	require.Zero(t, q.MSRPMargin)
	require.False(t, math.IsInf(q.Wholesale, 0))
	require.Equal(t, q.Wholesale, q.MSRP)
}
