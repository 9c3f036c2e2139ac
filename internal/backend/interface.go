package backend

import (
	"context"

	"acvcharts/internal/records"
	"acvcharts/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is an opened backend. Writer is set only for SQL backends,
// the only ones that accept imports.
type BackendResult struct {
	Source  records.Source
	Writer  records.Writer
	Cleanup CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory opens record backends from configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// file
	DataFile string

	// sqlite uses SQLiteDBPath, postgres and mysql use DatabaseURL
	SQLiteDBPath string
	DatabaseURL  string

	// sheets
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// s3
	S3Bucket   string
	S3Key      string
	AWSRegion  string
	AWSProfile string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend     BackendType = "file"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MySQLBackend    BackendType = "mysql"
	SheetsBackend   BackendType = "sheets"
	S3Backend       BackendType = "s3"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SQLiteBackend, PostgresBackend, MySQLBackend, SheetsBackend, S3Backend:
		return true
	default:
		return false
	}
}

// IsSQL reports whether the backend is served by internal/storage.
func (bt BackendType) IsSQL() bool {
	_, err := storage.ParseDialect(string(bt))
	return err == nil
}
