package backend

import (
	"context"
	"fmt"

	applog "acvcharts/internal/log"
	"acvcharts/internal/records/file"
	"acvcharts/internal/records/google"
	"acvcharts/internal/records/s3"
	"acvcharts/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentSource),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFileBackend(config)
	case SQLiteBackend, PostgresBackend, MySQLBackend:
		return f.createSQLBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case S3Backend:
		return f.createS3Backend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	src := file.New(config.DataFile)
	f.logger.Info("Initialized file backend", "data_file", config.DataFile)
	return &BackendResult{Source: src}, nil
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dialect, err := storage.ParseDialect(config.Type.String())
	if err != nil {
		return nil, err
	}

	repo, err := storage.Open(ctx, dialect, config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", dialect, err)
	}

	f.logger.Info("Initialized SQL backend", applog.FieldBackend, dialect)
	return &BackendResult{
		Source:  repo,
		Writer:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetRange:         config.GoogleSheetRange,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", applog.FieldSource, cli.Name())
	return &BackendResult{Source: cli}, nil
}

func (f *DefaultFactory) createS3Backend(ctx context.Context, config Config) (*BackendResult, error) {
	src, err := s3.New(ctx, s3.Config{
		Bucket:  config.S3Bucket,
		Key:     config.S3Key,
		Region:  config.AWSRegion,
		Profile: config.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 source: %w", err)
	}

	f.logger.Info("Initialized S3 backend", applog.FieldSource, src.Name())
	return &BackendResult{Source: src}, nil
}
