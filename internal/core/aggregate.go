package core

import "math"

// Aggregator turns a batch of raw records into a Report. The zero value uses
// the "0%" sentinel for zero-ACV groups.
type Aggregator struct {
	ZeroACV ZeroACVPolicy
}

// Aggregate runs the default Aggregator.
func Aggregate(records []RawRecord) (Report, error) {
	return Aggregator{}.Aggregate(records)
}

// Aggregate validates the whole batch, then runs the quarterly grouping and
// the grand totals over the same input. Any error aborts the batch.
func (a Aggregator) Aggregate(records []RawRecord) (Report, error) {
	if err := ValidateRecords(records); err != nil {
		return Report{}, err
	}
	buckets, err := groupByQuarter(records, a.ZeroACV)
	if err != nil {
		return Report{}, err
	}
	totals, err := totalize(records, a.ZeroACV)
	if err != nil {
		return Report{}, err
	}
	return Report{CustomerData: buckets, Totals: totals}, nil
}

// GroupByQuarter partitions records into one bucket per quarter, ordered by
// first appearance. Records sharing quarter and type are not merged.
func GroupByQuarter(records []RawRecord, policy ZeroACVPolicy) ([]QuarterBucket, error) {
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	return groupByQuarter(records, policy)
}

// Totalize sums records per customer type across all quarters. Each
// record's ACV is rounded before it is added.
func Totalize(records []RawRecord, policy ZeroACVPolicy) (*TotalsMap, error) {
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	return totalize(records, policy)
}

// ValidateRecords checks every record, then that the absolute ACV and count
// sums of the whole batch fit in an int64. Every bucket and grand sum is
// bounded by those, so aggregation never wraps.
func ValidateRecords(records []RawRecord) error {
	var acvSum, countSum int64
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return WithRecordIndex(err, i)
		}
		var ok bool
		if acvSum, ok = addAbs(acvSum, r.RoundedACV()); !ok {
			return &MalformedRecordError{Index: i, Field: FieldACV, Err: ErrOutOfRange}
		}
		if countSum, ok = addAbs(countSum, r.Count); !ok {
			return &MalformedRecordError{Index: i, Field: FieldCount, Err: ErrOutOfRange}
		}
	}
	return nil
}

// addAbs adds |v| to a non-negative sum. v must not be math.MinInt64.
func addAbs(sum, v int64) (int64, bool) {
	if v < 0 {
		v = -v
	}
	if v > math.MaxInt64-sum {
		return sum, false
	}
	return sum + v, true
}

func groupByQuarter(records []RawRecord, policy ZeroACVPolicy) ([]QuarterBucket, error) {
	quarters := NewOrderedMap[[]TypeRow]()
	for _, r := range records {
		rows, _ := quarters.Get(r.Quarter)
		quarters.Set(r.Quarter, append(rows, TypeRow{
			Type: r.CustType,
			Opps: r.Count,
			ACV:  r.RoundedACV(),
		}))
	}

	buckets := make([]QuarterBucket, 0, quarters.Len())
	for _, q := range quarters.Keys() {
		rows, _ := quarters.Get(q)

		var totalACV, totalOpps int64
		for _, row := range rows {
			totalACV += row.ACV
			totalOpps += row.Opps
		}
		for i := range rows {
			pct, err := percentageFor(rows[i].ACV, totalACV, policy, q)
			if err != nil {
				return nil, err
			}
			rows[i].Percentage = pct
		}
		rows = append(rows, TypeRow{
			Type:       TotalType,
			Opps:       totalOpps,
			ACV:        totalACV,
			Percentage: "100%",
		})
		buckets = append(buckets, QuarterBucket{Quarter: q, Rows: rows})
	}
	return buckets, nil
}

func totalize(records []RawRecord, policy ZeroACVPolicy) (*TotalsMap, error) {
	totals := NewOrderedMap[TypeTotal]()
	for _, r := range records {
		t, _ := totals.Get(r.CustType)
		t.Opps += r.Count
		t.ACV += r.RoundedACV()
		totals.Set(r.CustType, t)
	}

	types := totals.Keys()
	var totalACV, totalOpps int64
	for _, k := range types {
		t, _ := totals.Get(k)
		totalACV += t.ACV
		totalOpps += t.Opps
	}
	for _, k := range types {
		t, _ := totals.Get(k)
		pct, err := percentageFor(t.ACV, totalACV, policy, "")
		if err != nil {
			return nil, err
		}
		t.Percentage = pct
		totals.Set(k, t)
	}
	totals.Set(TotalType, TypeTotal{Opps: totalOpps, ACV: totalACV, Percentage: "100%"})
	return totals, nil
}
