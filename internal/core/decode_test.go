package core

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeRecords(t *testing.T) {
	in := `[
		{"closed_fiscal_quarter": "2023-Q3", "Cust_Type": "Existing Customer", "count": 46, "acv": 1322310.25},
		{"closed_fiscal_quarter": "2023-Q3", "Cust_Type": "New Customer", "count": 14.0, "acv": 983031, "extra": true}
	]`
	records, err := DecodeRecords(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Quarter != "2023-Q3" || records[0].CustType != "Existing Customer" || records[0].Count != 46 {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].ACV.String() != "1322310.25" {
		t.Fatalf("ACV = %s, want exact 1322310.25", records[0].ACV)
	}
	if records[1].Count != 14 {
		t.Fatalf("integral float count should decode, got %d", records[1].Count)
	}
}

func TestDecodeRecordsReportsOffendingIndex(t *testing.T) {
	good := `{"closed_fiscal_quarter": "Q1", "Cust_Type": "New", "count": 1, "acv": 1}`
	cases := []struct {
		name  string
		bad   string
		field string
		cause error
	}{
		{"missing quarter", `{"Cust_Type": "New", "count": 1, "acv": 1}`, FieldQuarter, ErrMissingValue},
		{"null type", `{"closed_fiscal_quarter": "Q1", "Cust_Type": null, "count": 1, "acv": 1}`, FieldCustType, ErrMissingValue},
		{"numeric quarter", `{"closed_fiscal_quarter": 2023, "Cust_Type": "New", "count": 1, "acv": 1}`, FieldQuarter, ErrWrongType},
		{"string acv", `{"closed_fiscal_quarter": "Q1", "Cust_Type": "New", "count": 1, "acv": "abc"}`, FieldACV, ErrWrongType},
		{"quoted number acv", `{"closed_fiscal_quarter": "Q1", "Cust_Type": "New", "count": 1, "acv": "12.5"}`, FieldACV, ErrWrongType},
		{"fractional count", `{"closed_fiscal_quarter": "Q1", "Cust_Type": "New", "count": 1.5, "acv": 1}`, FieldCount, ErrNotInteger},
		{"missing acv", `{"closed_fiscal_quarter": "Q1", "Cust_Type": "New", "count": 1}`, FieldACV, ErrMissingValue},
		{"reserved type", `{"closed_fiscal_quarter": "Q1", "Cust_Type": "Total", "count": 1, "acv": 1}`, FieldCustType, ErrReservedCustType},
		{"huge count", `{"closed_fiscal_quarter": "Q1", "Cust_Type": "New", "count": 1e19, "acv": 1}`, FieldCount, ErrOutOfRange},
		{"huge acv", `{"closed_fiscal_quarter": "Q1", "Cust_Type": "New", "count": 1, "acv": 1e20}`, FieldACV, ErrOutOfRange},
		{"huge negative acv", `{"closed_fiscal_quarter": "Q1", "Cust_Type": "New", "count": 1, "acv": -1e19}`, FieldACV, ErrOutOfRange},
		{"not an object", `[1, 2]`, "", ErrNotObject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRecords(strings.NewReader("[" + good + "," + good + "," + tc.bad + "]"))
			var me *MalformedRecordError
			if !errors.As(err, &me) {
				t.Fatalf("expected MalformedRecordError, got %v", err)
			}
			if me.Index != 2 || me.Field != tc.field {
				t.Fatalf("got index=%d field=%q, want 2 %q", me.Index, me.Field, tc.field)
			}
			if !errors.Is(err, tc.cause) {
				t.Fatalf("error %v does not wrap %v", err, tc.cause)
			}
			if !strings.Contains(err.Error(), "record 2") {
				t.Fatalf("error message should name the record: %v", err)
			}
		})
	}
}

func TestDecodeRecordsRejectsNonArray(t *testing.T) {
	for _, in := range []string{"", "null", `{"closed_fiscal_quarter": "Q1"}`, "[1,"} {
		if _, err := DecodeRecords(strings.NewReader(in)); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestDecodeRecordsEmptyArray(t *testing.T) {
	records, err := DecodeRecords(strings.NewReader(" [] "))
	if err != nil || len(records) != 0 {
		t.Fatalf("expected empty batch, got %v, %v", records, err)
	}
}
