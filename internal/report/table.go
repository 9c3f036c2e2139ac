package report

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"acvcharts/internal/core"
)

var (
	boldCyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	boldYellow = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// RenderTable renders one table per quarter plus the grand totals.
func RenderTable(rep core.Report) (string, error) {
	var sb strings.Builder

	for _, b := range rep.CustomerData {
		sb.WriteString(boldCyan("Quarter "+b.Quarter) + "\n")
		data := pterm.TableData{{"Customer type", "Opps", "ACV", "Share"}}
		for _, r := range b.Rows {
			data = append(data, tableRow(r.Type, r.Opps, r.ACV, r.Percentage))
		}
		out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return "", err
		}
		sb.WriteString(out + "\n\n")
	}

	sb.WriteString(boldCyan("All quarters") + "\n")
	data := pterm.TableData{{"Customer type", "Opps", "ACV", "Share"}}
	if rep.Totals != nil {
		for _, k := range rep.Totals.Keys() {
			t, _ := rep.Totals.Get(k)
			data = append(data, tableRow(k, t.Opps, t.ACV, t.Percentage))
		}
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", err
	}
	sb.WriteString(out + "\n")
	return sb.String(), nil
}

func tableRow(typ string, opps, acv int64, pct string) []string {
	row := []string{typ, strconv.FormatInt(opps, 10), strconv.FormatInt(acv, 10), pct}
	if typ == core.TotalType {
		for i := range row {
			row[i] = boldYellow(row[i])
		}
	}
	return row
}
