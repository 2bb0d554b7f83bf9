// Package google reads year tabs from a Google Sheets spreadsheet with a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

var _ sheets.Reader = (*Client)(nil)

// Credentials selects the service account key: inline JSON wins over a
// file path.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case strings.TrimSpace(c.File) != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// New creates a read-only Sheets client for one spreadsheet.
func New(ctx context.Context, spreadsheetID string, creds Credentials, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	credentialsJSON, err := creds.load()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, logger: logger.WithComponent(log.ComponentSheets)}, nil
}

func (c *Client) Ref() string { return c.spreadsheetID }

// Load reads every tab whose title starts with a year. Numbers are read
// unformatted so locale separators never reach the amount parser.
func (c *Client) Load(ctx context.Context) (core.RawTable, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return core.RawTable{}, fmt.Errorf("get spreadsheet: %w", err)
	}

	var tabs []sheets.Tab
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		title := sh.Properties.Title
		if _, ok := sheets.YearFromTitle(title); !ok {
			continue
		}
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteSheet(title)+"!A:Z").
			ValueRenderOption("UNFORMATTED_VALUE").
			Context(ctx).
			Do()
		if err != nil {
			return core.RawTable{}, fmt.Errorf("read sheet %s: %w", title, err)
		}
		tabs = append(tabs, sheets.Tab{Title: title, Cells: toCells(resp.Values)})
		c.logger.DebugContext(ctx, "sheet read", log.FieldFile, title, log.FieldRows, len(resp.Values))
	}
	return sheets.FromTabs(tabs)
}
