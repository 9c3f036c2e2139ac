package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"acvcharts/internal/core"
	applog "acvcharts/internal/log"
	"acvcharts/internal/records"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet range and the service account used to read it.
type Config struct {
	SpreadsheetID      string
	SheetRange         string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type valuesFunc func(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)

// Client reads opportunity records from a Google Sheets range whose first row
// names the record fields.
type Client struct {
	values        valuesFunc
	spreadsheetID string
	sheetRange    string
	logger        *applog.Logger
}

var _ records.Source = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentSource)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return newClient(func(ctx context.Context, id, rng string) ([][]interface{}, error) {
		resp, err := svc.Spreadsheets.Values.Get(id, rng).
			ValueRenderOption("UNFORMATTED_VALUE").
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}, cfg, logger), nil
}

func newClient(values valuesFunc, cfg Config, logger *applog.Logger) *Client {
	rng := strings.TrimSpace(cfg.SheetRange)
	if rng == "" {
		rng = "Opportunities"
	}
	return &Client{
		values:        values,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetRange:    rng,
		logger:        logger,
	}
}

func (c *Client) Name() string {
	return "sheets:" + c.spreadsheetID + "/" + c.sheetRange
}

// LoadRecords implements records.Source.
func (c *Client) LoadRecords(ctx context.Context) ([]core.RawRecord, error) {
	values, err := c.values(ctx, c.spreadsheetID, c.sheetRange)
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", c.sheetRange, err)
	}
	recs, err := parseRecords(values)
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "Loaded records from sheet",
		applog.FieldSource, c.Name(),
		applog.FieldRecords, len(recs))
	return recs, nil
}

// newSheetsService initializes a read-only Sheets service from service
// account credentials, inline JSON first and then the credentials file.
func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		var err error
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}
