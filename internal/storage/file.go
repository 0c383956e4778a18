package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "crontabs/pkg/logx"
)

// fileStore appends one JSON document per scan to <prefix>.scans.jsonl.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	f    *os.File
	path string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	reportPath := filepath.Join(dir, base) + ".scans.jsonl"
	f, err := os.OpenFile(reportPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	log.Debug("scan report file opened", logx.String("path", reportPath))
	return &fileStore{log: log, f: f, path: reportPath}, nil
}

func (s *fileStore) SaveScan(ctx context.Context, sc Scan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.New("scan report file closed")
	}
	// One write per record keeps lines whole for concurrent readers.
	_, err = s.f.Write(b)
	return err
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
