package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"crontabs/internal/config"
	"crontabs/internal/diag"
	"crontabs/internal/storage"
)

func TestNewAppliesOverrides(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "crontabs.json")
	body := `{"crontab": {"dir": "/from/file", "timezone": "UTC"}, "accounts": [{"name": "ops", "uid": "1200", "home": "/srv/ops"}]}`
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	userMode := false
	a, err := New(cfgPath, Overrides{Dir: "/from/flag", System: &userMode, Workers: 3, LogLevel: "ERROR"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	c := a.Config().Crontab
	if c.Dir != "/from/flag" || c.IsSystem() || c.Workers != 3 {
		t.Fatalf("crontab config = %+v", c)
	}
	if a.Location() != time.UTC {
		t.Fatalf("location = %v", a.Location())
	}
	if acct, err := a.Resolver().Resolve("ops"); err != nil || acct.Home != "/srv/ops" {
		t.Fatalf("static resolver = %+v, %v", acct, err)
	}
}

func TestNewRejectsBadOverride(t *testing.T) {
	t.Parallel()
	if _, err := New("", Overrides{Timezone: "Nowhere/Special"}); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		st      *config.StorageConfig
		enabled bool
		wantErr bool
		driver  string
	}{
		{name: "absent"},
		{name: "none", st: &config.StorageConfig{Driver: "none"}},
		{name: "file default path", st: &config.StorageConfig{Driver: "file"}, enabled: true, driver: "file"},
		{name: "sqlite", st: &config.StorageConfig{Driver: "SQLite", Path: "x.db"}, enabled: true, driver: "sqlite"},
		{name: "sqlite without path", st: &config.StorageConfig{Driver: "sqlite"}, wantErr: true},
		{name: "postgres", st: &config.StorageConfig{Driver: "postgres", DSN: "postgres://localhost/cron"}, enabled: true, driver: "postgres"},
		{name: "postgres without dsn", st: &config.StorageConfig{Driver: "postgres"}, wantErr: true},
		{name: "unknown", st: &config.StorageConfig{Driver: "mongo"}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			cfg.Storage = tt.st
			sc, ok, err := mapStorageConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.enabled {
				t.Fatalf("enabled = %v, want %v", ok, tt.enabled)
			}
			if ok && sc.Driver != tt.driver {
				t.Fatalf("driver = %q, want %q", sc.Driver, tt.driver)
			}
		})
	}
}

func TestExportToSQLite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ops"), []byte("*/10 * * * * ops /srv/ops/poll\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(t.TempDir(), "crontabs.yaml")
	body := "logging:\n  level: ERROR\naccounts:\n  - name: ops\n    uid: \"1200\"\n    home: /srv/ops\nstorage:\n  driver: sqlite\n  path: " +
		filepath.Join(t.TempDir(), "scans.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := New(cfgPath, Overrides{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	res, err := a.Loader("").Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := a.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer st.Close()
	sc, err := a.Export(context.Background(), st, res)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(sc.Entries) != 1 || sc.Entries[0].Owner != "ops" || sc.Entries[0].Next == nil {
		t.Fatalf("scan = %+v", sc)
	}
}

func TestOpenStoreDisabled(t *testing.T) {
	t.Parallel()
	a, err := New("", Overrides{LogLevel: "ERROR"})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if _, err := a.OpenStore(); !errors.Is(err, storage.ErrDisabled) {
		t.Fatalf("OpenStore = %v, want ErrDisabled", err)
	}
}

func TestEnvironmentFileLayering(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	envPath := filepath.Join(dir, "cron.env")
	if err := os.WriteFile(envPath, []byte("# base\nMAILTO=root\nexport TZ=UTC\nPATH=/usr/bin\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "crontabs.json")
	body := `{"environment_file": "` + envPath + `", "environment": ["PATH=/opt/bin:/usr/bin", "LANG=C"]}`
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := New(cfgPath, Overrides{LogLevel: "ERROR"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	want := []string{"MAILTO=root", "PATH=/opt/bin:/usr/bin", "TZ=UTC", "LANG=C"}
	got := a.Env().Environ()
	if len(got) != len(want) {
		t.Fatalf("Environ = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Environ = %v, want %v", got, want)
		}
	}

	// Env hands out copies.
	a.Env().Set("MAILTO", "changed")
	if v, _ := a.Env().Get("MAILTO"); v != "root" {
		t.Fatalf("MAILTO = %q after mutating a copy", v)
	}
}

func TestNewRejectsMissingEnvironmentFile(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "crontabs.json")
	body := `{"environment_file": "/nonexistent/cron.env"}`
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(cfgPath, Overrides{LogLevel: "ERROR"}); err == nil {
		t.Fatal("expected error for a missing environment_file")
	}
}

func TestDiagnosticsAreNotRetained(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken"), []byte("61 * * * * root /bin/true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := New("", Overrides{LogLevel: "ERROR"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.sink.(*diag.LogSink); !ok {
		t.Fatalf("sink = %T, want a log-only sink", a.sink)
	}
	l := a.Loader(dir)
	for i := 0; i < 20; i++ {
		res, err := l.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if res.Failures() != 1 {
			t.Fatalf("scan %d failures = %d, want 1", i, res.Failures())
		}
	}
}
