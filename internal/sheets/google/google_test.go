package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-1")
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-1")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Run("inline wins", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT", `{"type":"service_account"}`)
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/does/not/exist")

		b, err := credentialsFromEnv(context.Background())
		if err != nil || string(b) != `{"type":"service_account"}` {
			t.Fatalf("got %q err=%v", b, err)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sa.json")
		if err := os.WriteFile(path, []byte(`{"k":1}`), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("GOOGLE_SERVICE_ACCOUNT", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)

		b, err := credentialsFromEnv(context.Background())
		if err != nil || string(b) != `{"k":1}` {
			t.Fatalf("got %q err=%v", b, err)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(t.TempDir(), "missing.json"))

		if _, err := credentialsFromEnv(context.Background()); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.GetRows(context.Background(), "A!A:B"); err == nil {
		t.Error("GetRows should fail without service")
	}
	if err := c.AppendRows(context.Background(), "A!A:B", [][]string{{"x"}}); err == nil {
		t.Error("AppendRows should fail without service")
	}
}

func TestClient_GetRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.Contains(r.URL.Path, "/spreadsheets/sheet-1/values/") {
			http.Error(w, "unexpected request "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"Strafenkatalog!A1:B3","majorDimension":"ROWS","values":[["Vergehen","Kosten"],[" Zu spät ","5,00 €"],["Zahl",3.5]]}`))
	})

	rows, err := c.GetRows(context.Background(), "Strafenkatalog!A:B")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "Zu spät" || rows[1][1] != "5,00 €" || rows[2][1] != "3.5" {
		t.Fatalf("unexpected rows: %q", rows)
	}
}

func TestClient_GetRowsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"bad range"}}`, http.StatusBadRequest)
	})
	if _, err := c.GetRows(context.Background(), "Einträge!A:G"); err == nil {
		t.Fatal("expected error")
	}
}

func TestClient_AppendRows(t *testing.T) {
	var (
		gotQuery string
		gotBody  gsheet.ValueRange
		calls    int
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":append") {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		gotQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRows":2}}`))
	})

	rows := [][]string{
		{"07.03.2026", "Max", "Bezahlt", "Kiste", "", "Kiste", ""},
		{"07.03.2026", "Max", "Bezahlt", "Kiste", "", "Kiste", ""},
	}
	if err := c.AppendRows(context.Background(), "Einträge!A:G", rows); err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") || !strings.Contains(gotQuery, "insertDataOption=INSERT_ROWS") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(gotBody.Values) != 2 || gotBody.Values[0][2] != "Bezahlt" {
		t.Errorf("unexpected body %+v", gotBody.Values)
	}
}

func TestClient_AppendNothing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	if err := c.AppendRows(context.Background(), "Einträge!A:G", nil); err != nil {
		t.Fatalf("AppendRows(nil) error = %v", err)
	}
}
