package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// DecodeRecords reads a JSON array of raw records. Each element is checked
// field by field so a bad element is reported by index instead of turning
// into a zero value.
func DecodeRecords(r io.Reader) ([]RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("decode records: expected a JSON array")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	records := make([]RawRecord, 0, len(items))
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, WithRecordIndex(err, i)
		}
		if err := rec.Validate(); err != nil {
			return nil, WithRecordIndex(err, i)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(item json.RawMessage) (RawRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return RawRecord{}, &MalformedRecordError{Index: -1, Err: ErrNotObject}
	}

	var (
		rec RawRecord
		err error
	)
	if rec.Quarter, err = stringField(fields, FieldQuarter); err != nil {
		return RawRecord{}, err
	}
	if rec.CustType, err = stringField(fields, FieldCustType); err != nil {
		return RawRecord{}, err
	}
	if rec.Count, err = integerField(fields, FieldCount); err != nil {
		return RawRecord{}, err
	}
	if rec.ACV, err = decimalField(fields, FieldACV); err != nil {
		return RawRecord{}, err
	}
	return rec, nil
}

func rawField(fields map[string]json.RawMessage, name string) (json.RawMessage, error) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, &MalformedRecordError{Index: -1, Field: name, Err: ErrMissingValue}
	}
	return raw, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, err := rawField(fields, name)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &MalformedRecordError{Index: -1, Field: name, Err: ErrWrongType}
	}
	return s, nil
}

func numberField(fields map[string]json.RawMessage, name string) (decimal.Decimal, error) {
	raw, err := rawField(fields, name)
	if err != nil {
		return decimal.Decimal{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return decimal.Decimal{}, &MalformedRecordError{Index: -1, Field: name, Err: ErrWrongType}
	}
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Decimal{}, &MalformedRecordError{Index: -1, Field: name, Err: ErrWrongType}
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, &MalformedRecordError{Index: -1, Field: name, Err: ErrWrongType}
	}
	return d, nil
}

func integerField(fields map[string]json.RawMessage, name string) (int64, error) {
	d, err := numberField(fields, name)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, &MalformedRecordError{Index: -1, Field: name, Err: ErrNotInteger}
	}
	n, err := strconv.ParseInt(d.String(), 10, 64)
	if err != nil {
		return 0, &MalformedRecordError{Index: -1, Field: name, Err: ErrOutOfRange}
	}
	return n, nil
}

func decimalField(fields map[string]json.RawMessage, name string) (decimal.Decimal, error) {
	return numberField(fields, name)
}
