package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"acvcharts/internal/core"
)

var (
	headerColor     = [3]int{40, 40, 40}
	headerTextColor = [3]int{255, 255, 255}
	bodyTextColor   = [3]int{50, 50, 50}
	totalFillColor  = [3]int{240, 240, 240}
)

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Customer type", 85, "L"},
	{"Opps", 30, "R"},
	{"ACV", 45, "R"},
	{"Share", 30, "R"},
}

// WritePDF writes the report as an A4 document: one table per quarter and
// the grand totals.
func WritePDF(w io.Writer, rep core.Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	pdf.Cell(0, 10, "ACV by customer type")
	pdf.Ln(14)

	drawTable := func(title string, rows [][]string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(9)

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
		pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, col.title, "1", 0, col.align, true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.SetFillColor(totalFillColor[0], totalFillColor[1], totalFillColor[2])
		for _, row := range rows {
			isTotal := row[0] == core.TotalType
			if isTotal {
				pdf.SetFont("Arial", "B", 10)
			} else {
				pdf.SetFont("Arial", "", 10)
			}
			for i, col := range pdfColumns {
				pdf.CellFormat(col.width, 6, tr(row[i]), "1", 0, col.align, isTotal, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(6)
	}

	for _, b := range rep.CustomerData {
		rows := make([][]string, 0, len(b.Rows))
		for _, r := range b.Rows {
			rows = append(rows, []string{r.Type, strconv.FormatInt(r.Opps, 10), strconv.FormatInt(r.ACV, 10), r.Percentage})
		}
		drawTable("Quarter "+b.Quarter, rows)
	}

	var totals [][]string
	if rep.Totals != nil {
		for _, k := range rep.Totals.Keys() {
			t, _ := rep.Totals.Get(k)
			totals = append(totals, []string{k, strconv.FormatInt(t.Opps, 10), strconv.FormatInt(t.ACV, 10), t.Percentage})
		}
	}
	drawTable("All quarters", totals)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error writing PDF: %w", err)
	}
	return nil
}
