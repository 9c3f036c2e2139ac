// Package report renders an aggregate as a terminal table or an export file.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"acvcharts/internal/core"
)

// Format is an output format for an aggregate.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatPDF   Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatCSV, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q: must be table, json, csv or pdf", s)
	}
}

// Row is one line of the flattened report. Section is "quarter" for
// per-quarter rows and "totals" for the grand totals.
type Row struct {
	Section    string
	Quarter    string
	Type       string
	Opps       int64
	ACV        int64
	Percentage string
}

func (r Row) strings() []string {
	return []string{
		r.Section,
		r.Quarter,
		r.Type,
		strconv.FormatInt(r.Opps, 10),
		strconv.FormatInt(r.ACV, 10),
		r.Percentage,
	}
}

var header = []string{"section", "quarter", "type", "opps", "acv", "percentage"}

// Flatten lists quarter rows in bucket order followed by the totals in key
// order.
func Flatten(rep core.Report) []Row {
	var rows []Row
	for _, b := range rep.CustomerData {
		for _, r := range b.Rows {
			rows = append(rows, Row{
				Section:    "quarter",
				Quarter:    b.Quarter,
				Type:       r.Type,
				Opps:       r.Opps,
				ACV:        r.ACV,
				Percentage: r.Percentage,
			})
		}
	}
	if rep.Totals != nil {
		for _, k := range rep.Totals.Keys() {
			t, _ := rep.Totals.Get(k)
			rows = append(rows, Row{
				Section:    "totals",
				Type:       k,
				Opps:       t.Opps,
				ACV:        t.ACV,
				Percentage: t.Percentage,
			})
		}
	}
	return rows
}

// Write renders rep to w in the given file format.
func Write(w io.Writer, format Format, rep core.Report) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatCSV:
		return WriteCSV(w, rep)
	case FormatPDF:
		return WritePDF(w, rep)
	case FormatTable:
		out, err := RenderTable(rep)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// Export writes rep to path and returns the absolute path written. An empty
// path or a directory gets a timestamped file name.
func Export(path string, format Format, rep core.Report) (string, error) {
	if format == FormatTable {
		return "", fmt.Errorf("table format cannot be exported to a file")
	}

	outputFilename, err := outputPath(path, format)
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating %s file: %w", format, err)
	}
	if err := Write(file, format, rep); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("error closing %s file: %w", format, err)
	}
	return filepath.Abs(outputFilename)
}

func outputPath(path string, format Format) (string, error) {
	dir := path
	if path != "" {
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return "", fmt.Errorf("error creating output directory: %w", err)
			}
			return path, nil
		}
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(dir, fmt.Sprintf("acv_report_%s.%s", timestamp, format)), nil
}
