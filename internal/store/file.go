package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultSnapshotFile is the snapshot filename used when none is configured.
const DefaultSnapshotFile = "quiz_progress.json"

// FileRepo keeps a single snapshot document on disk and replaces it
// atomically on every save.
type FileRepo struct {
	path string
}

// NewFileRepo returns a repo backed by the file at path.
func NewFileRepo(path string) *FileRepo {
	return &FileRepo{path: path}
}

// Path returns the snapshot file location.
func (r *FileRepo) Path() string { return r.path }

// Save writes the snapshot to a temp file in the same directory and then
// renames it over the target.
func (r *FileRepo) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := Encode(&snap.Data)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := EnsureDir(r.path); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := replaceFile(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// replaceFile renames src over dst, removing dst first on platforms that
// refuse to rename onto an existing file.
func replaceFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}

// Latest reads the snapshot file. A missing file yields (nil, nil).
func (r *FileRepo) Latest(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	data, err := Decode(raw)
	if err != nil {
		return nil, &ErrCorruptSnapshot{Source: r.path, Err: err}
	}
	return &Snapshot{
		ID:        r.path,
		Timestamp: info.ModTime(),
		Data:      *data,
	}, nil
}

// Delete removes the snapshot file.
func (r *FileRepo) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
