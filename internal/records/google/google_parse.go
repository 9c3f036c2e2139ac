package google

import (
	"fmt"
	"strconv"
	"strings"

	"acvcharts/internal/core"

	"github.com/shopspring/decimal"
)

var recordColumns = []string{core.FieldQuarter, core.FieldCustType, core.FieldCount, core.FieldACV}

// parseRecords converts a values matrix (as returned by the Sheets API) into
// raw records. The first row is the header; columns may come in any order.
// Record indexes in errors are data-row positions below the header, counted
// from zero with blank rows included, so index n is sheet row n+2.
func parseRecords(values [][]interface{}) ([]core.RawRecord, error) {
	if len(values) == 0 {
		return []core.RawRecord{}, nil
	}

	headers := toStrings(values[0])
	cols := make(map[string]int, len(recordColumns))
	var missing []string
	for _, name := range recordColumns {
		idx := indexOf(headers, name)
		if idx == -1 {
			missing = append(missing, name)
			continue
		}
		cols[name] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected sheet header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	recs := make([]core.RawRecord, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		index := i - 1

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, core.WithRecordIndex(err, index)
		}
		if err := rec.Validate(); err != nil {
			return nil, core.WithRecordIndex(err, index)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseRow(row []string, cols map[string]int) (core.RawRecord, error) {
	rec := core.RawRecord{
		Quarter:  strings.TrimSpace(safeGet(row, cols[core.FieldQuarter])),
		CustType: strings.TrimSpace(safeGet(row, cols[core.FieldCustType])),
	}

	count, err := parseNumber(safeGet(row, cols[core.FieldCount]), core.FieldCount)
	if err != nil {
		return core.RawRecord{}, err
	}
	if !count.IsInteger() {
		return core.RawRecord{}, &core.MalformedRecordError{Index: -1, Field: core.FieldCount, Err: core.ErrNotInteger}
	}
	if rec.Count, err = strconv.ParseInt(count.String(), 10, 64); err != nil {
		return core.RawRecord{}, &core.MalformedRecordError{Index: -1, Field: core.FieldCount, Err: core.ErrOutOfRange}
	}

	if rec.ACV, err = parseNumber(safeGet(row, cols[core.FieldACV]), core.FieldACV); err != nil {
		return core.RawRecord{}, err
	}
	return rec, nil
}

func parseNumber(s, field string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Decimal{}, &core.MalformedRecordError{Index: -1, Field: field, Err: core.ErrMissingValue}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &core.MalformedRecordError{Index: -1, Field: field, Err: core.ErrWrongType}
	}
	return d, nil
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(x)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func safeGet(row []string, i int) string {
	if i >= 0 && i < len(row) {
		return row[i]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
