// Package core implements the opportunity aggregation engine shared by the
// HTTP API and the command line tools.
//
// A batch of won-opportunity records is rolled up twice, independently:
// per fiscal quarter (in first-seen order, duplicates kept as separate rows)
// and across all quarters per customer type. Both rollups round each
// record's ACV half-up before summing and append a synthetic "Total" entry.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// TotalType names the synthetic total row and totals key.
const TotalType = "Total"

// Source field names, as they appear in the raw JSON.
const (
	FieldQuarter  = "closed_fiscal_quarter"
	FieldCustType = "Cust_Type"
	FieldCount    = "count"
	FieldACV      = "acv"
)

type (
	// RawRecord is one won opportunity group as exported by the CRM.
	RawRecord struct {
		Quarter  string          `json:"closed_fiscal_quarter"`
		CustType string          `json:"Cust_Type"`
		Count    int64           `json:"count"`
		ACV      decimal.Decimal `json:"acv"`
	}

	// TypeRow is one customer-type line inside a quarter bucket.
	TypeRow struct {
		Type       string `json:"type"`
		Opps       int64  `json:"opps"`
		ACV        int64  `json:"acv"`
		Percentage string `json:"percentage"`
	}

	QuarterBucket struct {
		Quarter string    `json:"quarter"`
		Rows    []TypeRow `json:"rows"`
	}

	TypeTotal struct {
		Opps       int64  `json:"opps"`
		ACV        int64  `json:"acv"`
		Percentage string `json:"percentage"`
	}

	// TotalsMap holds the grand totals per customer type, in first-seen
	// order, followed by the synthetic "Total" key.
	TotalsMap = OrderedMap[TypeTotal]

	// Report is the aggregate handed to the transport layer.
	Report struct {
		CustomerData []QuarterBucket `json:"customerData"`
		Totals       *TotalsMap      `json:"totals"`
	}
)

// Validate checks the parts of the record shape a typed value can still get
// wrong. The returned error is a *MalformedRecordError with Index -1.
func (r RawRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.Quarter) == "":
		return &MalformedRecordError{Index: -1, Field: FieldQuarter, Err: ErrEmptyValue}
	case strings.TrimSpace(r.CustType) == "":
		return &MalformedRecordError{Index: -1, Field: FieldCustType, Err: ErrEmptyValue}
	case r.CustType == TotalType:
		return &MalformedRecordError{Index: -1, Field: FieldCustType, Err: ErrReservedCustType}
	case r.Count == math.MinInt64:
		return &MalformedRecordError{Index: -1, Field: FieldCount, Err: ErrOutOfRange}
	case !RoundsInRange(r.ACV):
		return &MalformedRecordError{Index: -1, Field: FieldACV, Err: ErrOutOfRange}
	}
	return nil
}

// RoundedACV is the record's ACV rounded half-up to a whole unit.
func (r RawRecord) RoundedACV() int64 {
	return RoundHalfUp(r.ACV)
}

// Total returns the synthetic "Total" row of the bucket, if present.
func (b QuarterBucket) Total() (TypeRow, bool) {
	if n := len(b.Rows); n > 0 && b.Rows[n-1].Type == TotalType {
		return b.Rows[n-1], true
	}
	return TypeRow{}, false
}
