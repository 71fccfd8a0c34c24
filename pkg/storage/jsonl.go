package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// jsonlFile is an append-only JSON Lines file of T records.
type jsonlFile[T any] struct {
	mu     sync.RWMutex
	path   string
	logger *slog.Logger
}

func newJSONLFile[T any](path string) *jsonlFile[T] {
	return &jsonlFile[T]{path: path, logger: slog.Default()}
}

// Append writes one record. The parent directory is created on first write.
func (f *jsonlFile[T]) Append(record T) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(f.path), err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", filepath.Base(f.path), cerr)
		}
	}()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// LoadAll returns all records in write order. A missing file is empty.
// Lines that do not decode, such as a write cut short, are logged and skipped.
func (f *jsonlFile[T]) LoadAll() ([]T, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(f.path), err)
	}
	defer file.Close() //nolint:errcheck // read-only file

	var result []T
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			f.logger.Warn("skipping unreadable record", "file", filepath.Base(f.path), "line", lineNo, "error", err)
			continue
		}
		result = append(result, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", filepath.Base(f.path), err)
	}
	return result, nil
}
