package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"crontabs/internal/account"
	"crontabs/internal/loader"
	logx "crontabs/pkg/logx"
)

func sampleResult(t *testing.T) *loader.Result {
	t.Helper()
	dir := t.TempDir()
	body := "0 4 * * * root /usr/bin/rotate\n@reboot root /usr/bin/warm\n0 0 31 2 * root never\n99 * * * * root broken\n"
	if err := os.WriteFile(filepath.Join(dir, "system"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := loader.New(loader.Options{
		Dir:      dir,
		System:   true,
		Resolver: account.NewStatic(account.Account{Name: "root", UID: "0", Home: "/root"}),
	}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return res
}

func TestNewScan(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	sc := NewScan(sampleResult(t), now)

	if sc.ID == "" || !sc.At.Equal(now) || sc.Files != 1 {
		t.Fatalf("scan header = %+v", sc)
	}
	if len(sc.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(sc.Entries))
	}
	rotate := sc.Entries[0]
	if rotate.Next == nil || !rotate.Next.Equal(time.Date(2024, time.May, 2, 4, 0, 0, 0, time.UTC)) {
		t.Fatalf("rotate next = %v", rotate.Next)
	}
	if sc.Entries[1].Schedule != "@reboot" || sc.Entries[1].Next != nil {
		t.Fatalf("reboot entry = %+v", sc.Entries[1])
	}
	if sc.Entries[2].Next != nil {
		t.Fatalf("impossible schedule has next %v", sc.Entries[2].Next)
	}
	if len(sc.Failures) != 1 || sc.Failures[0].Code != "bad-minute" || sc.Failures[0].Line != 4 {
		t.Fatalf("failures = %+v", sc.Failures)
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	t.Parallel()
	tests := []Config{
		{Driver: "redis"},
		{Driver: "file"},
		{Driver: "sqlite"},
		{Driver: "postgres"},
	}
	for _, cfg := range tests {
		if _, err := Open(cfg, logx.Nop()); err == nil {
			t.Fatalf("Open(%+v): expected error", cfg)
		}
	}
}

func TestFileStoreAppendsLines(t *testing.T) {
	t.Parallel()
	prefix := filepath.Join(t.TempDir(), "reports", "crontabs.json")
	st, err := Open(Config{Driver: "file", Path: prefix}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	res := sampleResult(t)
	for i := 0; i < 2; i++ {
		if err := st.SaveScan(context.Background(), NewScan(res, now)); err != nil {
			t.Fatalf("SaveScan: %v", err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.SaveScan(context.Background(), Scan{}); err == nil {
		t.Fatal("SaveScan after Close should fail")
	}

	f, err := os.Open(filepath.Join(filepath.Dir(prefix), "crontabs.scans.jsonl"))
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()
	var lines []Scan
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var s Scan
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("bad line: %v", err)
		}
		lines = append(lines, s)
	}
	if len(lines) != 2 || lines[0].ID == lines[1].ID {
		t.Fatalf("expected two scans with distinct ids, got %+v", lines)
	}
	if len(lines[0].Entries) != 3 || len(lines[0].Failures) != 1 {
		t.Fatalf("scan 0 = %+v", lines[0])
	}
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scans.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	sc := NewScan(sampleResult(t), time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC))
	if err := st.SaveScan(context.Background(), sc); err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	db := st.(*sqlStore).db
	var entries, failures int
	if err := db.QueryRow(`SELECT entries, failures FROM scans WHERE id = ?`, sc.ID).Scan(&entries, &failures); err != nil {
		t.Fatalf("query scan: %v", err)
	}
	if entries != 3 || failures != 1 {
		t.Fatalf("scan row entries=%d failures=%d", entries, failures)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM scan_entries WHERE scan_id = ? AND next_at IS NOT NULL`, sc.ID).Scan(&n); err != nil {
		t.Fatalf("query entries: %v", err)
	}
	if n != 1 {
		t.Fatalf("entries with next_at = %d, want 1", n)
	}

	// Saving the same scan twice violates the primary key and leaves no
	// partial rows behind.
	if err := st.SaveScan(context.Background(), sc); err == nil {
		t.Fatal("duplicate scan id should fail")
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM scan_entries WHERE scan_id = ?`, sc.ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("entries after failed save = %d, want 3", n)
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()
	got := rebind(`INSERT INTO t(a, b, c) VALUES(?,?,?)`)
	if want := `INSERT INTO t(a, b, c) VALUES($1,$2,$3)`; got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
}

func TestNilSQLStore(t *testing.T) {
	t.Parallel()
	var s *sqlStore
	if err := s.SaveScan(context.Background(), Scan{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("SaveScan on nil store = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close on nil store = %v", err)
	}
}
