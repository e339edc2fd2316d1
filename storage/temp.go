package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tidewell/filegate/tool"
	"github.com/tidewell/filegate/types"
)

// TempResolver resolves a writable temp location for an incoming file
// through a three-tier fallback ladder:
//
//  1. the configured primary temp directory (move)
//  2. an application-namespaced subdirectory under the OS temp root,
//     created on demand (move)
//  3. a direct read-then-write of the file bytes into the OS temp root,
//     bypassing the move API entirely
//
// The first tier that succeeds wins; a single aggregated error is returned
// when all three fail.
type TempResolver struct {
	fs         afero.Afero
	primaryDir string
	namespace  string
	tempRoot   string // OS temp root, overridable for tests
}

func NewTempResolver(fs afero.Fs, primaryDir, namespace string) *TempResolver {
	return &TempResolver{
		fs:         afero.Afero{Fs: fs},
		primaryDir: primaryDir,
		namespace:  namespace,
		tempRoot:   os.TempDir(),
	}
}

// SetTempRoot overrides the OS temp root used by the fallback tiers.
func (r *TempResolver) SetTempRoot(root string) {
	r.tempRoot = root
}

// uniqueName appends a uuid suffix so concurrent files with the same name
// never collide in a shared temp directory.
func uniqueName(fileName string) (name, suffix string) {
	suffix = uuid.NewString()
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(filepath.Base(fileName), ext)
	return fmt.Sprintf("%s.%s%s", base, suffix, ext), suffix
}

// Resolve moves the staged file at srcPath into a temp location, trying each
// tier in order. Every failed attempt is logged with its reason.
func (r *TempResolver) Resolve(srcPath, fileName string) (*types.TempFileHandle, error) {
	name, suffix := uniqueName(fileName)
	var reasons []string

	// Tier 1: configured temp directory. No mkdir here: a missing or
	// unwritable primary directory is what pushes us down the ladder.
	primaryTarget := filepath.Join(r.primaryDir, name)
	if err := r.moveInto(srcPath, primaryTarget); err == nil {
		return &types.TempFileHandle{Path: primaryTarget, OriginTier: types.TierPrimary, Suffix: suffix}, nil
	} else {
		tool.DefaultLogger.Warnf("[TempResolver] primary tier failed for %s: %v", fileName, err)
		reasons = append(reasons, fmt.Sprintf("primary: %v", err))
	}

	// Tier 2: namespaced subdirectory under the OS temp root, created on
	// demand, owner-writable and world-readable.
	fallbackDir := filepath.Join(r.tempRoot, r.namespace)
	fallbackTarget := filepath.Join(fallbackDir, name)
	if err := r.fs.MkdirAll(fallbackDir, 0o755); err != nil {
		tool.DefaultLogger.Warnf("[TempResolver] system fallback tier failed for %s: %v", fileName, err)
		reasons = append(reasons, fmt.Sprintf("system fallback: %v", err))
	} else if err := r.moveInto(srcPath, fallbackTarget); err != nil {
		tool.DefaultLogger.Warnf("[TempResolver] system fallback tier failed for %s: %v", fileName, err)
		reasons = append(reasons, fmt.Sprintf("system fallback: %v", err))
	} else {
		return &types.TempFileHandle{Path: fallbackTarget, OriginTier: types.TierSystemFallback, Suffix: suffix}, nil
	}

	// Tier 3: raw byte copy straight into the OS temp root.
	lastTarget := filepath.Join(r.tempRoot, name)
	if err := r.copyBytes(srcPath, lastTarget); err != nil {
		tool.DefaultLogger.Warnf("[TempResolver] last resort tier failed for %s: %v", fileName, err)
		reasons = append(reasons, fmt.Sprintf("last resort: %v", err))
		return nil, types.NewPipelineError(types.ErrTempStorage, false,
			fmt.Sprintf("all temp storage tiers failed for %s: %s", fileName, strings.Join(reasons, "; ")), nil)
	}
	return &types.TempFileHandle{Path: lastTarget, OriginTier: types.TierLastResort, Suffix: suffix}, nil
}

// Stage copies the file at srcPath into the ladder without consuming the
// source. Callers that do not own the source file use it to obtain a
// snapshot handle they can scan against and delete later.
func (r *TempResolver) Stage(srcPath, fileName string) (*types.TempFileHandle, error) {
	data, err := r.fs.ReadFile(srcPath)
	if err != nil {
		return nil, err
	}
	staging := filepath.Join(r.tempRoot, "staging-"+uuid.NewString())
	if err := r.fs.WriteFile(staging, data, 0o644); err != nil {
		return nil, err
	}
	handle, err := r.Resolve(staging, fileName)
	if err != nil {
		// Resolve consumes the staging file only on success.
		_ = r.fs.Remove(staging)
		return nil, err
	}
	return handle, nil
}

// StandardPath is the temp-path convention the scan coordinator resolves
// files by when no alternate path is supplied.
func (r *TempResolver) StandardPath(fileName string) string {
	return filepath.Join(r.primaryDir, filepath.Base(fileName))
}

// WriteStandard persists raw bytes to the standard temp path, creating the
// primary directory if needed. Used when a scan request carries the file
// bytes directly.
func (r *TempResolver) WriteStandard(fileName string, data []byte) (string, error) {
	if err := r.fs.MkdirAll(r.primaryDir, 0o755); err != nil {
		return "", err
	}
	path := r.StandardPath(fileName)
	if err := r.fs.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Exists reports whether path exists on the resolver's filesystem.
func (r *TempResolver) Exists(path string) bool {
	ok, err := r.fs.Exists(path)
	return err == nil && ok
}

// Remove deletes the temp file behind a handle. A handle whose file is
// already gone counts as success; only failing to remove an existing file is
// an error.
func (r *TempResolver) Remove(handle *types.TempFileHandle) error {
	if handle == nil {
		return nil
	}
	exists, err := r.fs.Exists(handle.Path)
	if err != nil {
		return fmt.Errorf("failed to check temp file %s: %w", handle.Path, err)
	}
	if !exists {
		return nil
	}
	if err := r.fs.Remove(handle.Path); err != nil {
		return fmt.Errorf("failed to remove existing temp file %s: %w", handle.Path, err)
	}
	return nil
}

// moveInto renames src into target. The target directory must already exist
// for the rename to succeed, which is exactly the writability probe the
// ladder relies on.
func (r *TempResolver) moveInto(src, target string) error {
	info, err := r.fs.Stat(filepath.Dir(target))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(target))
	}
	return r.fs.Rename(src, target)
}

// copyBytes reads src fully and writes the bytes to target, bypassing the
// rename API.
func (r *TempResolver) copyBytes(src, target string) error {
	data, err := r.fs.ReadFile(src)
	if err != nil {
		return err
	}
	if err := r.fs.WriteFile(target, data, 0o644); err != nil {
		return err
	}
	return r.fs.Remove(src)
}
