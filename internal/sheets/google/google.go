// Package google mirrors the trend table into a Google Sheets tab.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
	"wealthtrack/internal/sheets"
)

// Credentials locate the OAuth client and the token produced by oauth-init.
// The inline JSON form wins over the file form.
type Credentials struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ sheets.TrendMirror = (*Client)(nil)

// New creates a Sheets client authorised with an OAuth user token.
func New(ctx context.Context, creds Credentials, spreadsheetID, sheetName string, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Trend"
	}

	httpClient, err := oauthHTTPClient(ctx, creds)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger = logger.WithComponent(log.ComponentSheets)
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID, "sheet", sheetName)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, logger: logger}, nil
}

func oauthHTTPClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	clientJSON, err := readInlineOrFile(creds.ClientJSON, creds.ClientFile, "oauth client")
	if err != nil {
		return nil, err
	}
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := readInlineOrFile(creds.TokenJSON, creds.TokenFile, "oauth token")
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	// the oauth transport wraps our pooled client
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return cfg.Client(ctx, &tok), nil
}

func readInlineOrFile(inline, file, what string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("missing %s credentials", what)
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (c *Client) tableRange() string {
	return fmt.Sprintf("'%s'!A:D", c.sheetName)
}

// WriteTrend clears the tab and writes the header plus one row per quarter.
func (c *Client) WriteTrend(ctx context.Context, points []core.TrendPoint) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := c.tableRange()
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	vr := &gsheet.ValueRange{Values: sheets.Rows(points)}
	start := fmt.Sprintf("'%s'!A1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, start, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", start, err)
	}

	c.logger.InfoContext(ctx, "Trend mirrored to Google Sheets",
		log.FieldSheetsRange, resp.UpdatedRange, log.FieldRecordCount, len(points))
	return nil
}

// ReadTrend reads the tab back; numbers are requested unformatted.
func (c *Client) ReadTrend(ctx context.Context) ([]core.TrendPoint, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.tableRange()).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read trend: %w", err)
	}
	return sheets.ParseRows(resp.Values)
}
