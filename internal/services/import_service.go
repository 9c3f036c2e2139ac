package services

import (
	"context"
	"fmt"

	"acvcharts/internal/core"
	applog "acvcharts/internal/log"
	"acvcharts/internal/records"
)

// Publisher announces replaced record batches.
type Publisher interface {
	PublishRecordsImported(ctx context.Context, source string, records int) error
}

// ImportService replaces the stored batch and tells running servers about it.
type ImportService struct {
	store     records.Writer
	source    string
	publisher Publisher
	logger    *applog.Logger
}

// NewImportService creates the service. publisher may be nil when AMQP is
// not configured.
func NewImportService(store records.Writer, source string, publisher Publisher, logger *applog.Logger) *ImportService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ImportService{
		store:     store,
		source:    source,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentStorage),
	}
}

// Import saves the batch first, then publishes. A failed publish is logged
// but does not fail the import: the data is already stored and caches
// expire on their own.
func (s *ImportService) Import(ctx context.Context, recs []core.RawRecord, progress func(int)) error {
	if err := s.store.ReplaceRecords(ctx, recs, progress); err != nil {
		return fmt.Errorf("replace records: %w", err)
	}
	s.logger.InfoContext(ctx, "Record batch stored",
		applog.FieldSource, s.source,
		applog.FieldRecords, len(recs),
		applog.FieldOperation, applog.OpImport)

	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping records imported message")
		return nil
	}
	if err := s.publisher.PublishRecordsImported(ctx, s.source, len(recs)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish records imported message",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpPublish)
	}
	return nil
}
