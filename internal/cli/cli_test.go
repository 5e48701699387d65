package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"strafen/internal/config"
	"strafen/internal/core"
	"strafen/internal/ledger"
	"strafen/internal/sheets/memory"
)

const (
	catalogRange = "Strafenkatalog!A:B"
	ledgerRange  = "Einträge!A:G"
)

func newTestLedger() *ledger.Engine {
	store := memory.New()
	store.Seed(catalogRange, [][]string{
		core.CatalogHeader,
		{"Zu spät", "5,00 €"},
		{"Trikot vergessen", core.UnitMarker},
	})
	store.Seed(ledgerRange, [][]string{core.LedgerHeader})
	clock := func() time.Time { return time.Date(2026, time.March, 7, 18, 0, 0, 0, time.UTC) }
	return ledger.NewEngine(store, catalogRange, ledgerRange, ledger.WithClock(clock))
}

func execute(t *testing.T, l Ledger, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(func(context.Context) (Ledger, func(), error) {
		return l, func() {}, nil
	})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_AddAndSaldo(t *testing.T) {
	l := newTestLedger()

	out, err := execute(t, l, "add", "Max", "zu spat", "--remark", "Training")
	if err != nil {
		t.Fatalf("add error = %v", err)
	}
	if !strings.Contains(out, "Recorded 1 row(s) for Max: Zu spät (5,00 €)") {
		t.Errorf("add output = %q", out)
	}

	if _, err := execute(t, l, "add", "Max", "Trikot vergessen"); err != nil {
		t.Fatalf("add error = %v", err)
	}

	out, err = execute(t, l, "saldo", "max")
	if err != nil {
		t.Fatalf("saldo error = %v", err)
	}
	if !strings.Contains(out, "max: 5,00 €, Kisten 1 (offen 1, bezahlt 0), 2 Einträge") {
		t.Errorf("saldo output = %q", out)
	}
}

func TestRootCommand_JSON(t *testing.T) {
	l := newTestLedger()

	out, err := execute(t, l, "--json", "add", "Eva", "2 Kisten mitgebracht")
	if err != nil {
		t.Fatalf("add error = %v", err)
	}
	var added struct {
		Kind     string     `json:"kind"`
		Appended [][]string `json:"appended"`
	}
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatalf("decode add output %q: %v", out, err)
	}
	if added.Kind != "payment" || len(added.Appended) != 2 {
		t.Errorf("add = %+v", added)
	}

	out, err = execute(t, l, "--json", "eintraege", "Eva")
	if err != nil {
		t.Fatalf("eintraege error = %v", err)
	}
	var list struct {
		Eintraege []map[string]string `json:"eintraege"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode eintraege output %q: %v", out, err)
	}
	if len(list.Eintraege) != 2 || list.Eintraege[0]["Vergehen"] != core.PaidLabel {
		t.Errorf("eintraege = %v", list.Eintraege)
	}
}

func TestRootCommand_Katalog(t *testing.T) {
	out, err := execute(t, newTestLedger(), "katalog")
	if err != nil {
		t.Fatalf("katalog error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Vergehen") || !strings.HasPrefix(lines[1], "Zu spät") {
		t.Errorf("katalog output = %q", out)
	}
}

func TestRootCommand_Errors(t *testing.T) {
	l := newTestLedger()

	if _, err := execute(t, l, "add", " ", "Zu spät"); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("add with blank name error = %v, want ErrEmptyName", err)
	}
	if _, err := execute(t, l, "add", "Max", "500 Kiste gebracht"); !errors.Is(err, core.ErrTooManyUnits) {
		t.Errorf("add over unit limit error = %v, want ErrTooManyUnits", err)
	}
	if _, err := execute(t, l, "saldo"); err == nil {
		t.Error("saldo without name should fail")
	}

	root := NewRootCommand(func(context.Context) (Ledger, func(), error) {
		return nil, nil, errors.New("no backend")
	})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"katalog"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "open ledger") {
		t.Errorf("Execute() error = %v, want open ledger failure", err)
	}
}

func TestRootCommand_ReleasesBackend(t *testing.T) {
	closed := 0
	root := NewRootCommand(func(context.Context) (Ledger, func(), error) {
		return newTestLedger(), func() { closed++ }, nil
	})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"saldo", "Max"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if closed != 1 {
		t.Errorf("close calls = %d, want 1", closed)
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerTo(&buf, "debug", "json", "cli")
	logger.DebugContext(context.Background(), "hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" || entry["component"] != "cli" || entry["level"] != "DEBUG" {
		t.Errorf("log entry = %v", entry)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("STRAFEN_CONFIG", "")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "8081")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	t.Setenv("DATA_BACKEND", "excel")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() should reject unknown backend")
	}

	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("STRAFEN_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() should fail on missing config file")
	}
}

func TestShutdownOn(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerTo(&buf, "info", "text", "app")

	sig := make(chan os.Signal, 1)
	cleaned := make(chan bool, 1)
	ctx, done := shutdownOn(logger, sig, time.Second, func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		cleaned <- hasDeadline
	})

	sig <- syscall.SIGTERM
	WaitForShutdown(ctx, done)

	if !<-cleaned {
		t.Error("cleanup context should carry the shutdown deadline")
	}
	if !strings.Contains(buf.String(), "Shutdown complete") {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestOpenLedger_Memory(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataBackend = "memory"
	cfg.DataDir = t.TempDir()

	logger := SetupLoggerTo(&bytes.Buffer{}, "info", "text", "cli")
	engine, res, err := OpenLedger(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	catalog, err := engine.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if catalog.Len() == 0 {
		t.Error("memory backend should seed a default catalog")
	}
}
