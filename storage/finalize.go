package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/tidewell/filegate/tool"
	"github.com/tidewell/filegate/types"
)

// Finalizer moves a validated, clean file from its temp location into
// durable storage and records its metadata. Any sub-step failure is a
// blocking persistence error: a file that cannot be durably recorded must
// not be silently dropped.
type Finalizer struct {
	fs        afero.Afero
	uploadDir string
	index     *IndexStore
}

func NewFinalizer(fs afero.Fs, uploadDir string, index *IndexStore) *Finalizer {
	return &Finalizer{fs: afero.Afero{Fs: fs}, uploadDir: uploadDir, index: index}
}

// Finalize moves tempPath into durable storage under fileName, hashes the
// file at its final location (certifying the moved artifact, not the
// pre-move bytes), and appends the metadata record.
func (f *Finalizer) Finalize(fileName, tempPath string) (*types.StoredFileRecord, error) {
	if err := f.fs.MkdirAll(f.uploadDir, 0o755); err != nil {
		return nil, persistenceError("create upload dir failed", err)
	}

	target := f.targetPath(fileName)
	if err := f.move(tempPath, target); err != nil {
		return nil, persistenceError(fmt.Sprintf("move to durable storage failed for %s", fileName), err)
	}

	hash, size, err := tool.HashFile(f.fs, target)
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("hash after move failed for %s", fileName), err)
	}

	record := types.StoredFileRecord{
		Name:      filepath.Base(target),
		Hash:      hash,
		Size:      size,
		Extension: strings.TrimPrefix(filepath.Ext(target), "."),
		StoredAt:  time.Now().UTC(),
	}
	if err := f.index.Append(record); err != nil {
		return nil, persistenceError(fmt.Sprintf("index write failed for %s", fileName), err)
	}

	tool.DefaultLogger.Infof("[Finalizer] Stored %s (%d bytes, sha256=%s)", record.Name, record.Size, record.Hash)
	return &record, nil
}

// targetPath picks a non-colliding destination: name.ext, name-1.ext, ...
func (f *Finalizer) targetPath(fileName string) string {
	base := filepath.Base(fileName)
	target := filepath.Join(f.uploadDir, base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; ; n++ {
		exists, err := f.fs.Exists(target)
		if err != nil || !exists {
			return target
		}
		target = filepath.Join(f.uploadDir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}
}

// move renames when possible and falls back to copy-and-delete when the temp
// file sits on another filesystem.
func (f *Finalizer) move(src, dst string) error {
	if err := f.fs.Rename(src, dst); err == nil {
		return nil
	}
	data, err := f.fs.ReadFile(src)
	if err != nil {
		return err
	}
	if err := f.fs.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return f.fs.Remove(src)
}

func persistenceError(msg string, cause error) *types.PipelineError {
	e := types.NewPipelineError(types.ErrPersistence, true, msg, cause)
	e.UserMessage = "the file could not be stored"
	return e
}
