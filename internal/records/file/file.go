package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"acvcharts/internal/core"
	"acvcharts/internal/records"
)

// Source reads records from a JSON array on disk. The file is re-read on
// every load so edits show up without a restart.
type Source struct {
	path string
}

var _ records.Source = (*Source)(nil)

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Name() string {
	return "file:" + filepath.Base(s.path)
}

// LoadRecords implements records.Source.
func (s *Source) LoadRecords(ctx context.Context) ([]core.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open records file: %w", err)
	}
	defer f.Close()

	recs, err := core.DecodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return recs, nil
}
