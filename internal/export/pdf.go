package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/Simplici0/woodshop/internal/pricesheet"
)

// Page layout constants (A4 portrait in mm).
const (
	pdfMarginLeft = 18.0
	pdfMarginTop  = 18.0
	pdfLabelWidth = 120.0
	pdfValueWidth = 54.0
	pdfRowHeight  = 7.0
)

// WritePDF writes a one-page cost sheet for item to w.
func WritePDF(w io.Writer, item pricesheet.Item) error {
	s := Summarize(item)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMarginLeft, pdfMarginTop, pdfMarginLeft)
	pdf.SetTitle(s.Label, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(pdfLabelWidth+pdfValueWidth, 10, tr(pdf, s.Label), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(pdfLabelWidth+pdfValueWidth, 5, fmt.Sprintf("%s - version %d - priced %s", s.Kind, s.Version, formatPriced(s.PricedAt)), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	section(pdf, "Labor")
	for _, l := range s.Labor {
		label := l.Type
		if l.Detail != "" {
			label += " (" + l.Detail + ")"
		} else if l.Hours.Float() > 0 {
			label += fmt.Sprintf(" - %.2fh @ %s", l.Hours.Float(), moneyString(l.Rate.Float()))
		}
		row(pdf, tr(pdf, label), l.Cost.Float(), false)
	}
	row(pdf, "Labor total", s.LaborCost, true)

	section(pdf, "Materials")
	for _, m := range s.Materials {
		row(pdf, m.Label, m.Cost, false)
	}
	row(pdf, "Materials total", s.Material, true)

	section(pdf, "Machine and overhead")
	row(pdf, fmt.Sprintf("CNC - %.2fh @ %s", s.CNC.Runtime.Float(), moneyString(s.CNC.Rate.Float())), s.CNC.Cost.Float(), false)
	row(pdf, fmt.Sprintf("Overhead - %.2fh @ %s", s.Overhead.Hours.Float(), moneyString(s.Overhead.Rate.Float())), s.Overhead.Cost.Float(), false)
	if s.Components > 0 {
		row(pdf, "Components", s.Components, false)
	}

	pdf.Ln(3)
	pdf.SetDrawColor(60, 60, 60)
	pdf.Line(pdfMarginLeft, pdf.GetY(), pdfMarginLeft+pdfLabelWidth+pdfValueWidth, pdf.GetY())
	pdf.Ln(2)
	row(pdf, "Cost", s.Cost, true)
	row(pdf, fmt.Sprintf("Wholesale (%.1f%% margin)", s.Prices.WholesaleMargin), s.Prices.Wholesale, true)
	row(pdf, fmt.Sprintf("MSRP (%.1f%% margin)", s.Prices.MSRPMargin), s.Prices.MSRP, true)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(235, 228, 216)
	pdf.CellFormat(pdfLabelWidth+pdfValueWidth, pdfRowHeight, title, "", 1, "L", true, 0, "")
}

func row(pdf *fpdf.Fpdf, label string, amount float64, strong bool) {
	style := ""
	if strong {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 10)
	pdf.CellFormat(pdfLabelWidth, pdfRowHeight, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(pdfValueWidth, pdfRowHeight, moneyString(amount), "", 1, "R", false, 0, "")
}

// tr converts UTF-8 text to the core font encoding.
func tr(pdf *fpdf.Fpdf, s string) string {
	return pdf.UnicodeTranslatorFromDescriptor("")(s)
}
