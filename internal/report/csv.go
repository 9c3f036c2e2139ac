package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"acvcharts/internal/core"
)

// WriteCSV writes the flattened report with a header row.
func WriteCSV(w io.Writer, rep core.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}
	for _, row := range Flatten(rep) {
		if err := writer.Write(row.strings()); err != nil {
			return fmt.Errorf("error writing CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
