// Package storage exports crontab scan reports.
//
// A report is written once per scan and never read back by this program:
// it is an output surface for other tools, not state. Drivers:
//
//   - "file": JSON Lines appended to <prefix>.scans.jsonl
//   - "sqlite": an embedded SQLite database (modernc.org/sqlite)
//   - "postgres": a PostgreSQL database (github.com/lib/pq)
package storage
