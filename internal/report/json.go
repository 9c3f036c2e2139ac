package report

import (
	"encoding/json"
	"fmt"
	"io"

	"acvcharts/internal/core"
)

// WriteJSON writes the report in the API's JSON shape, indented.
func WriteJSON(w io.Writer, rep core.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rep); err != nil {
		return fmt.Errorf("error encoding JSON data: %w", err)
	}
	return nil
}
