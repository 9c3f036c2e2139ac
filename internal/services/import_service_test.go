package services

import (
	"context"
	"errors"
	"testing"

	"acvcharts/internal/core"
)

type fakeWriter struct {
	got []core.RawRecord
	err error
}

func (f *fakeWriter) ReplaceRecords(_ context.Context, recs []core.RawRecord, progress func(int)) error {
	if f.err != nil {
		return f.err
	}
	f.got = recs
	for i := range recs {
		if progress != nil {
			progress(i + 1)
		}
	}
	return nil
}

type fakePublisher struct {
	calls   int
	source  string
	records int
	err     error
}

func (f *fakePublisher) PublishRecordsImported(_ context.Context, source string, records int) error {
	f.calls++
	f.source, f.records = source, records
	return f.err
}

func TestImportService_Import(t *testing.T) {
	batch := []core.RawRecord{rec("Q1", "New", 1, "10"), rec("Q1", "Old", 2, "20")}

	t.Run("stores then publishes", func(t *testing.T) {
		w, p := &fakeWriter{}, &fakePublisher{}
		svc := NewImportService(w, "sqlite", p, testLogger())

		var progressed int
		if err := svc.Import(context.Background(), batch, func(n int) { progressed = n }); err != nil {
			t.Fatalf("Import: %v", err)
		}
		if len(w.got) != 2 || progressed != 2 {
			t.Errorf("stored %d, progress %d; want 2, 2", len(w.got), progressed)
		}
		if p.calls != 1 || p.source != "sqlite" || p.records != 2 {
			t.Errorf("publisher got %+v", p)
		}
	})

	t.Run("publish failure does not fail the import", func(t *testing.T) {
		p := &fakePublisher{err: errors.New("broker down")}
		svc := NewImportService(&fakeWriter{}, "sqlite", p, testLogger())
		if err := svc.Import(context.Background(), batch, nil); err != nil {
			t.Errorf("Import: %v", err)
		}
	})

	t.Run("store failure skips publish", func(t *testing.T) {
		p := &fakePublisher{}
		boom := errors.New("disk full")
		svc := NewImportService(&fakeWriter{err: boom}, "sqlite", p, testLogger())
		if err := svc.Import(context.Background(), batch, nil); !errors.Is(err, boom) {
			t.Fatalf("want store error, got %v", err)
		}
		if p.calls != 0 {
			t.Error("publish should not run after a failed store")
		}
	})

	t.Run("no publisher", func(t *testing.T) {
		svc := NewImportService(&fakeWriter{}, "sqlite", nil, testLogger())
		if err := svc.Import(context.Background(), batch, nil); err != nil {
			t.Errorf("Import: %v", err)
		}
	})
}
