package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/woodshop/internal/pricesheet"
)

// Text renders a plain-text cost sheet for item.
func Text(item pricesheet.Item) string {
	s := Summarize(item)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, v%d)\n", s.Label, s.Kind, s.Version)
	b.WriteString(strings.Repeat("=", 48) + "\n")

	if len(s.Labor) > 0 {
		b.WriteString("Labor\n")
		for _, l := range s.Labor {
			detail := ""
			if l.Detail != "" {
				detail = " (" + l.Detail + ")"
			} else if l.Hours.Float() > 0 {
				detail = fmt.Sprintf(" %.2fh @ %s", l.Hours.Float(), moneyString(l.Rate.Float()))
			}
			writeRow(&b, "  "+l.Type+detail, l.Cost.Float())
		}
	}
	writeRow(&b, "Labor total", s.LaborCost)

	if len(s.Materials) > 0 {
		b.WriteString("Materials\n")
		for _, m := range s.Materials {
			writeRow(&b, "  "+m.Label, m.Cost)
		}
	}
	writeRow(&b, "Materials total", s.Material)

	writeRow(&b, fmt.Sprintf("CNC %.2fh @ %s", s.CNC.Runtime.Float(), moneyString(s.CNC.Rate.Float())), s.CNC.Cost.Float())
	writeRow(&b, fmt.Sprintf("Overhead %.2fh @ %s", s.Overhead.Hours.Float(), moneyString(s.Overhead.Rate.Float())), s.Overhead.Cost.Float())
	if s.Components > 0 {
		writeRow(&b, "Components", s.Components)
	}

	b.WriteString(strings.Repeat("-", 48) + "\n")
	writeRow(&b, "Cost", s.Cost)
	writeRow(&b, fmt.Sprintf("Wholesale (%.1f%%)", s.Prices.WholesaleMargin), s.Prices.Wholesale)
	writeRow(&b, fmt.Sprintf("MSRP (%.1f%%)", s.Prices.MSRPMargin), s.Prices.MSRP)
	if !s.PricedAt.IsZero() {
		fmt.Fprintf(&b, "Priced %s\n", s.PricedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func writeRow(b *strings.Builder, label string, amount float64) {
	fmt.Fprintf(b, "%-36s %11s\n", label, moneyString(amount))
}
