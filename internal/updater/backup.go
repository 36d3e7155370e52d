// Package updater replaces the running lampnode binary with the latest
// GitHub release, keeping one backup for rollback.
package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	backupBinary = "lampnode.backup"
	backupMeta   = "backup.json"
)

var errNoBackup = errors.New("no backup available")

type backupMetadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExecPath  string    `json:"exec_path"`
}

// backupStore keeps a single copy of a previous binary in dir.
type backupStore struct {
	dir    string
	logger *slog.Logger

	mu   sync.RWMutex
	meta *backupMetadata
}

func defaultBackupDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(cache, "lampnode", "backup"), nil
}

func openBackupStore(dir string, logger *slog.Logger) (*backupStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	b := &backupStore{dir: dir, logger: logger}
	b.load()
	return b, nil
}

func (b *backupStore) load() {
	data, err := os.ReadFile(filepath.Join(b.dir, backupMeta))
	if err != nil {
		return
	}

	var meta backupMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		b.logger.Warn("Ignoring unreadable backup metadata", "error", err)
		return
	}
	if _, err := os.Stat(filepath.Join(b.dir, backupBinary)); err != nil {
		b.logger.Warn("Backup metadata without binary", "dir", b.dir)
		return
	}

	b.mu.Lock()
	b.meta = &meta
	b.mu.Unlock()
	b.logger.Debug("Found backup", "version", meta.Version)
}

// save copies execPath into the store, replacing any earlier backup.
func (b *backupStore) save(execPath, version string) error {
	if err := copyFile(execPath, filepath.Join(b.dir, backupBinary)); err != nil {
		return err
	}

	meta := backupMetadata{Version: version, CreatedAt: time.Now(), ExecPath: execPath}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode backup metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(b.dir, backupMeta), data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}

	b.mu.Lock()
	b.meta = &meta
	b.mu.Unlock()
	b.logger.Info("Backup created", "version", version, "path", execPath)
	return nil
}

// restore copies the backup over the path it was taken from.
func (b *backupStore) restore() error {
	b.mu.RLock()
	meta := b.meta
	b.mu.RUnlock()
	if meta == nil {
		return errNoBackup
	}

	if err := copyFile(filepath.Join(b.dir, backupBinary), meta.ExecPath); err != nil {
		return err
	}
	b.logger.Info("Backup restored", "version", meta.Version, "path", meta.ExecPath)
	return nil
}

func (b *backupStore) version() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.meta == nil {
		return "", false
	}
	return b.meta.Version, true
}

// copyFile writes src to a temporary file next to dst and renames it into
// place, so a running binary is never truncated.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dst, err)
	}
	return nil
}
