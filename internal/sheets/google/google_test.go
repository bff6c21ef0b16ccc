package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
)

const testClientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Credentials{}, " ", "Trend", log.Discard())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_InvalidClientJSON(t *testing.T) {
	creds := Credentials{ClientJSON: "invalid-json", TokenJSON: `{"access_token":"test"}`}
	_, err := New(context.Background(), creds, "sheet-id", "Trend", log.Discard())
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got: %v", err)
	}
}

func TestNew_MissingToken(t *testing.T) {
	creds := Credentials{ClientJSON: testClientJSON}
	_, err := New(context.Background(), creds, "sheet-id", "Trend", log.Discard())
	if err == nil || !strings.Contains(err.Error(), "missing oauth token credentials") {
		t.Fatalf("expected missing token error, got: %v", err)
	}
}

func TestNew_FromFiles(t *testing.T) {
	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(clientFile, []byte(testClientJSON), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"test","token_type":"Bearer"}`), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := New(context.Background(), Credentials{ClientFile: clientFile, TokenFile: tokenFile}, "sheet-id", "", log.Discard())
	if err != nil {
		t.Fatalf("expected client, got %v", err)
	}
	if c.sheetName != "Trend" || c.tableRange() != "'Trend'!A:D" {
		t.Fatalf("unexpected defaults: %q %q", c.sheetName, c.tableRange())
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Trend", logger: log.Discard()}
	if err := c.WriteTrend(context.Background(), []core.TrendPoint{{Label: "Q"}}); err == nil {
		t.Fatal("expected error with nil service")
	}
	if _, err := c.ReadTrend(context.Background()); err == nil {
		t.Fatal("expected error with nil service")
	}
}
