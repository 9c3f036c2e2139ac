package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"acvcharts/internal/core"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customer_type.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSource_LoadRecords(t *testing.T) {
	path := writeFile(t, `[
		{"closed_fiscal_quarter":"2023-Q3","Cust_Type":"Existing Customer","count":12,"acv":1322544.93},
		{"closed_fiscal_quarter":"2023-Q3","Cust_Type":"New Customer","count":20,"acv":983587.2}
	]`)

	src := New(path)
	recs, err := src.LoadRecords(context.Background())
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[1].CustType != "New Customer" || recs[1].Count != 20 {
		t.Errorf("unexpected second record: %+v", recs[1])
	}
	if got := recs[0].RoundedACV(); got != 1322545 {
		t.Errorf("RoundedACV = %d, want 1322545", got)
	}
	if src.Name() != "file:customer_type.json" {
		t.Errorf("Name = %q", src.Name())
	}
}

func TestSource_Malformed(t *testing.T) {
	path := writeFile(t, `[
		{"closed_fiscal_quarter":"Q1","Cust_Type":"New","count":1,"acv":1},
		{"closed_fiscal_quarter":"Q1","Cust_Type":"New","count":1,"acv":"lots"}
	]`)

	_, err := New(path).LoadRecords(context.Background())
	var me *core.MalformedRecordError
	if !errors.As(err, &me) {
		t.Fatalf("want MalformedRecordError, got %v", err)
	}
	if me.Index != 1 || me.Field != core.FieldACV {
		t.Errorf("got index %d field %q, want 1 %q", me.Index, me.Field, core.FieldACV)
	}
}

func TestSource_MissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.json")).LoadRecords(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("want os.ErrNotExist, got %v", err)
	}
}

func TestSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(writeFile(t, `[]`)).LoadRecords(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
}
