package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/spf13/afero"

	"github.com/tidewell/filegate/types"
)

// IndexStore holds the metadata index: an ordered array of stored-file
// records, rewritten in full on every append. The mutex serializes the
// read-modify-write so concurrent finalizations cannot drop each other's
// records.
type IndexStore struct {
	fs   afero.Afero
	path string
	mu   sync.Mutex
}

func NewIndexStore(fs afero.Fs, path string) *IndexStore {
	return &IndexStore{fs: afero.Afero{Fs: fs}, path: path}
}

// Append reads the whole index, appends rec, and writes the whole index
// back.
func (s *IndexStore) Append(rec types.StoredFileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := sonic.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := s.fs.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// All returns every record in insertion order.
func (s *IndexStore) All() ([]types.StoredFileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *IndexStore) readAll() ([]types.StoredFileRecord, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.StoredFileRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	var records []types.StoredFileRecord
	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return records, nil
}
