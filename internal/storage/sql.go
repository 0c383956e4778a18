package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	logx "crontabs/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// sqlStore writes scans through database/sql. Queries are written with '?'
// placeholders and rebound for drivers that number them.
type sqlStore struct {
	db       *sql.DB
	log      logx.Logger
	numbered bool
}

func (s *sqlStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqlStore) q(query string) string {
	if !s.numbered {
		return query
	}
	return rebind(query)
}

// rebind turns '?' placeholders into $1, $2, ...
func rebind(query string) string {
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *sqlStore) SaveScan(ctx context.Context, sc Scan) (err error) {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		s.q(`INSERT INTO scans(id, at, dir, files, entries, failures) VALUES(?,?,?,?,?,?)`),
		sc.ID, sc.At.UTC().Format(time.RFC3339Nano), sc.Dir, sc.Files, len(sc.Entries), len(sc.Failures),
	); err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}

	if len(sc.Entries) > 0 {
		stmt, perr := tx.PrepareContext(ctx, s.q(
			`INSERT INTO scan_entries(scan_id, file, line, owner, schedule, flags, command, next_at) VALUES(?,?,?,?,?,?,?,?)`))
		if perr != nil {
			return perr
		}
		defer stmt.Close()
		for _, e := range sc.Entries {
			var next any
			if e.Next != nil {
				next = e.Next.UTC().Format(time.RFC3339)
			}
			if _, err = stmt.ExecContext(ctx, sc.ID, e.File, e.Line, e.Owner, e.Schedule, nullStr(e.Flags), e.Command, next); err != nil {
				return fmt.Errorf("insert entry %s:%d: %w", e.File, e.Line, err)
			}
		}
	}

	for _, f := range sc.Failures {
		var line any
		if f.Line > 0 {
			line = f.Line
		}
		if _, err = tx.ExecContext(ctx,
			s.q(`INSERT INTO scan_failures(scan_id, file, line, code, message) VALUES(?,?,?,?,?)`),
			sc.ID, f.File, line, f.Code, f.Message,
		); err != nil {
			return fmt.Errorf("insert failure %s:%d: %w", f.File, f.Line, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("scan report saved",
		logx.String("scan_id", sc.ID),
		logx.Int("entries", len(sc.Entries)),
		logx.Int("failures", len(sc.Failures)),
	)
	return nil
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
