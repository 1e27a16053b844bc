// Package artifacts persists the pipeline's filesystem outputs: raw API
// documents and tabular CSV exports.
package artifacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Store writes run artifacts under a single output directory:
// raw JSON documents in <dir>/raw/, CSV tables in <dir>/.
// Each file is written exactly once per run and replaced wholesale on the next.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir. Directories are created lazily on
// first write.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// SaveRaw writes a raw JSON document to <dir>/raw/<name>.json and returns the
// path written.
func (s *Store) SaveRaw(name string, data []byte) (string, error) {
	path := s.RawPath(name)
	if err := writeFile(path, data); err != nil {
		return "", fmt.Errorf("save raw %s: %w", name, err)
	}
	s.logger.Info("raw document saved", "path", path, "bytes", len(data))
	return path, nil
}

// LoadRaw reads a previously saved raw document. The second return value is
// false when no such artifact exists.
func (s *Store) LoadRaw(name string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.RawPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load raw %s: %w", name, err)
	}
	return data, true, nil
}

// SaveCSV writes a tabular artifact to <dir>/<name>.csv and returns the path
// written.
func (s *Store) SaveCSV(name string, header []string, rows [][]string) (string, error) {
	path := filepath.Join(s.dir, name+".csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("save csv %s: %w", name, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("save csv %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("save csv %s: %w", name, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("save csv %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("save csv %s: %w", name, err)
	}

	s.logger.Info("csv saved", "path", path, "rows", len(rows))
	return path, nil
}

// RawPath returns where SaveRaw would place the named document.
func (s *Store) RawPath(name string) string {
	return filepath.Join(s.dir, "raw", name+".json")
}

// ChartPath returns where chart documents belong: <dir>/plots/<name>.html.
func (s *Store) ChartPath(name string) string {
	return filepath.Join(s.dir, "plots", name+".html")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
