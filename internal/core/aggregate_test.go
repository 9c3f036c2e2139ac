package core

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func rec(quarter, typ string, count int64, acv string) RawRecord {
	return RawRecord{Quarter: quarter, CustType: typ, Count: count, ACV: decimal.RequireFromString(acv)}
}

func TestAggregateDuplicateRowsScenario(t *testing.T) {
	report, err := Aggregate([]RawRecord{
		rec("Q1", "New", 2, "100.4"),
		rec("Q1", "New", 1, "50.6"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.CustomerData) != 1 || report.CustomerData[0].Quarter != "Q1" {
		t.Fatalf("unexpected buckets: %+v", report.CustomerData)
	}
	want := []TypeRow{
		{Type: "New", Opps: 2, ACV: 100, Percentage: "66%"},
		{Type: "New", Opps: 1, ACV: 51, Percentage: "34%"},
		{Type: "Total", Opps: 3, ACV: 151, Percentage: "100%"},
	}
	got := report.CustomerData[0].Rows
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	newTotal, ok := report.Totals.Get("New")
	if !ok || newTotal != (TypeTotal{Opps: 3, ACV: 151, Percentage: "100%"}) {
		t.Fatalf("unexpected New total: %+v (ok=%v)", newTotal, ok)
	}
}

func TestGroupByQuarterKeepsFirstSeenOrder(t *testing.T) {
	buckets, err := GroupByQuarter([]RawRecord{
		rec("2024-Q1", "New", 1, "10"),
		rec("2023-Q3", "New", 1, "10"),
		rec("2024-Q1", "Existing", 1, "10"),
		rec("2023-Q4", "New", 1, "10"),
		rec("2023-Q3", "Existing", 1, "10"),
	}, ZeroACVSentinel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, b := range buckets {
		got = append(got, b.Quarter)
	}
	if strings.Join(got, ",") != "2024-Q1,2023-Q3,2023-Q4" {
		t.Fatalf("unexpected quarter order: %v", got)
	}
}

func TestTotalizeRoundsEachRecordBeforeSumming(t *testing.T) {
	totals, err := Totalize([]RawRecord{
		rec("Q1", "New", 1, "0.5"),
		rec("Q2", "New", 1, "0.5"),
		rec("Q3", "New", 1, "0.5"),
	}, ZeroACVSentinel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := totals.Get("New")
	// round(0.5)*3 = 3, while round(1.5) would be 2
	if got.ACV != 3 {
		t.Fatalf("New ACV = %d, want 3", got.ACV)
	}
}

func TestAggregateRollupsAreConsistent(t *testing.T) {
	records := []RawRecord{
		rec("2023-Q3", "Existing Customer", 46, "1322310.2"),
		rec("2023-Q3", "New Customer", 14, "983031.4"),
		rec("2023-Q4", "Existing Customer", 45, "1124856.5"),
		rec("2023-Q4", "New Customer", 10, "387300"),
		rec("2024-Q1", "Existing Customer", 51, "1360047.49"),
		rec("2024-Q1", "New Customer", 6, "313188.9"),
		rec("2024-Q1", "Partner", 3, "1000.1"),
		rec("2024-Q2", "Existing Customer", 23, "647821"),
		rec("2024-Q2", "New Customer", 6, "224643.3"),
	}
	report, err := Aggregate(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rawCount int64
	for _, r := range records {
		rawCount += r.Count
	}

	var bucketOpps int64
	for _, b := range report.CustomerData {
		total, ok := b.Total()
		if !ok {
			t.Fatalf("bucket %s has no Total row", b.Quarter)
		}
		var acv, opps, pct int64
		rows := b.Rows[:len(b.Rows)-1]
		for _, row := range rows {
			acv += row.ACV
			opps += row.Opps
			pct += percentValue(t, row.Percentage)
		}
		bucketOpps += opps
		if total.ACV != acv || total.Opps != opps {
			t.Fatalf("bucket %s total = %+v, rows sum acv=%d opps=%d", b.Quarter, total, acv, opps)
		}
		if total.Percentage != "100%" {
			t.Fatalf("bucket %s total percentage = %s", b.Quarter, total.Percentage)
		}
		if diff := pct - 100; diff > int64(len(rows)) || -diff > int64(len(rows)) {
			t.Fatalf("bucket %s percentages sum to %d", b.Quarter, pct)
		}
	}
	if bucketOpps != rawCount {
		t.Fatalf("bucket opps = %d, raw count = %d", bucketOpps, rawCount)
	}

	var acv, opps int64
	for _, k := range report.Totals.Keys() {
		if k == TotalType {
			continue
		}
		v, _ := report.Totals.Get(k)
		acv += v.ACV
		opps += v.Opps
	}
	grand, _ := report.Totals.Get(TotalType)
	if grand.ACV != acv || grand.Opps != opps || grand.Opps != rawCount {
		t.Fatalf("grand total = %+v, sums acv=%d opps=%d raw=%d", grand, acv, opps, rawCount)
	}

	existing, _ := report.Totals.Get("Existing Customer")
	// 1322310 + 1124857 + 1360047 + 647821
	if existing.ACV != 4455035 {
		t.Fatalf("Existing Customer ACV = %d, want 4455035", existing.ACV)
	}
}

func percentValue(t *testing.T, s string) int64 {
	t.Helper()
	n, err := strconv.ParseInt(strings.TrimSuffix(s, "%"), 10, 64)
	if err != nil {
		t.Fatalf("bad percentage %q: %v", s, err)
	}
	return n
}

func TestAggregateZeroACVSentinel(t *testing.T) {
	report, err := Aggregate([]RawRecord{
		rec("Q1", "New", 2, "0"),
		rec("Q1", "Existing", 1, "0.4"),
		rec("Q2", "New", 1, "10"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q1 := report.CustomerData[0]
	for _, row := range q1.Rows[:2] {
		if row.Percentage != "0%" || row.ACV != 0 {
			t.Fatalf("expected 0%% sentinel row, got %+v", row)
		}
	}
	if total, _ := q1.Total(); total != (TypeRow{Type: TotalType, Opps: 3, ACV: 0, Percentage: "100%"}) {
		t.Fatalf("unexpected Q1 total: %+v", total)
	}
	if existing, _ := report.Totals.Get("Existing"); existing.Percentage != "0%" {
		t.Fatalf("Existing percentage = %s, want 0%%", existing.Percentage)
	}
}

func TestAggregateZeroACVError(t *testing.T) {
	_, err := Aggregator{ZeroACV: ZeroACVError}.Aggregate([]RawRecord{
		rec("Q1", "New", 1, "10"),
		rec("Q2", "New", 1, "0.2"),
	})
	if !errors.Is(err, ErrDegenerateBucket) {
		t.Fatalf("expected degenerate bucket error, got %v", err)
	}
	var de *DegenerateBucketError
	if !errors.As(err, &de) || de.Quarter != "Q2" {
		t.Fatalf("expected Q2 to be reported, got %v", err)
	}

	_, err = Aggregator{ZeroACV: ZeroACVError}.Aggregate([]RawRecord{rec("Q1", "New", 1, "0")})
	if !errors.Is(err, ErrDegenerateBucket) {
		t.Fatalf("expected degenerate bucket error, got %v", err)
	}
}

func TestAggregateRejectsMalformedRecords(t *testing.T) {
	cases := []struct {
		name  string
		bad   RawRecord
		field string
		cause error
	}{
		{"blank quarter", rec(" ", "New", 1, "1"), FieldQuarter, ErrEmptyValue},
		{"blank type", rec("Q1", "", 1, "1"), FieldCustType, ErrEmptyValue},
		{"reserved type", rec("Q1", "Total", 1, "1"), FieldCustType, ErrReservedCustType},
		{"acv beyond int64", rec("Q1", "New", 1, "1e20"), FieldACV, ErrOutOfRange},
		{"acv sum overflows", rec("Q1", "New", 1, "9223372036854775807"), FieldACV, ErrOutOfRange},
		{"count sum overflows", rec("Q1", "New", math.MaxInt64, "1"), FieldCount, ErrOutOfRange},
		{"min int64 count", rec("Q1", "New", math.MinInt64, "1"), FieldCount, ErrOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Aggregate([]RawRecord{rec("Q1", "New", 1, "1"), tc.bad})
			var me *MalformedRecordError
			if !errors.As(err, &me) {
				t.Fatalf("expected MalformedRecordError, got %v", err)
			}
			if me.Index != 1 || me.Field != tc.field {
				t.Fatalf("got index=%d field=%s, want 1 %s", me.Index, me.Field, tc.field)
			}
			if !errors.Is(err, ErrMalformedRecord) || !errors.Is(err, tc.cause) {
				t.Fatalf("error %v does not match %v", err, tc.cause)
			}
		})
	}
}

func TestAggregateLargeACVsFailInsteadOfWrapping(t *testing.T) {
	_, err := Aggregate([]RawRecord{
		rec("Q1", "New", 1, "9e18"),
		rec("Q1", "Old", 1, "9e18"),
	})
	var me *MalformedRecordError
	if !errors.As(err, &me) || me.Index != 1 || !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected out of range error at record 1, got %v", err)
	}

	// the largest batch that still fits keeps exact sums and sane shares
	report, err := Aggregate([]RawRecord{
		rec("Q1", "New", 1, "4611686018427387903"),
		rec("Q1", "Old", 1, "4611686018427387904"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total, _ := report.CustomerData[0].Total()
	if total.ACV != math.MaxInt64 {
		t.Fatalf("total ACV = %d, want %d", total.ACV, int64(math.MaxInt64))
	}
	for _, row := range report.CustomerData[0].Rows {
		if row.ACV < 0 || (row.Percentage != "50%" && row.Percentage != "100%") {
			t.Fatalf("unexpected row %+v", row)
		}
	}
}

func TestAggregateEmptyBatch(t *testing.T) {
	report, err := Aggregate(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"customerData":[],"totals":{"Total":{"opps":0,"acv":0,"percentage":"100%"}}}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
}

func TestReportJSONShape(t *testing.T) {
	report, err := Aggregate([]RawRecord{
		rec("Q1", "Existing", 3, "300"),
		rec("Q1", "New", 1, "100"),
		rec("Q2", "New", 2, "100"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"customerData":[` +
		`{"quarter":"Q1","rows":[{"type":"Existing","opps":3,"acv":300,"percentage":"75%"},{"type":"New","opps":1,"acv":100,"percentage":"25%"},{"type":"Total","opps":4,"acv":400,"percentage":"100%"}]},` +
		`{"quarter":"Q2","rows":[{"type":"New","opps":2,"acv":100,"percentage":"100%"},{"type":"Total","opps":2,"acv":100,"percentage":"100%"}]}],` +
		`"totals":{"Existing":{"opps":3,"acv":300,"percentage":"60%"},"New":{"opps":3,"acv":200,"percentage":"40%"},"Total":{"opps":6,"acv":500,"percentage":"100%"}}}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100.4", 100},
		{"50.5", 51},
		{"50.6", 51},
		{"0.49999", 0},
		{"-2.5", -2},
		{"-2.6", -3},
		{"1322310", 1322310},
	}
	for _, tc := range cases {
		if got := RoundHalfUp(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Errorf("RoundHalfUp(%s) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		part, total int64
		want        string
	}{
		{100, 151, "66%"},
		{51, 151, "34%"},
		{1, 8, "13%"},
		{1322310, 2305341, "57%"},
		{5, 5, "100%"},
		{math.MaxInt64, 1, "922337203685477580700%"},
		{-3, 2, "-150%"},
	}
	for _, tc := range cases {
		if got := Percentage(tc.part, tc.total); got != tc.want {
			t.Errorf("Percentage(%d, %d) = %s, want %s", tc.part, tc.total, got, tc.want)
		}
	}
}

func TestParseZeroACVPolicy(t *testing.T) {
	for in, want := range map[string]ZeroACVPolicy{"": ZeroACVSentinel, "sentinel": ZeroACVSentinel, "ERROR": ZeroACVError} {
		got, err := ParseZeroACVPolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseZeroACVPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseZeroACVPolicy("nan"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
