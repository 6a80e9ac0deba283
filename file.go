package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File-level error categories.
//   - ErrEnsureDir: failure to create parent directories for a file.
//   - ErrRead: failure to read the file; wraps the underlying error, so a
//     missing file satisfies errors.Is(err, os.ErrNotExist).
//   - ErrWrite: failure to write the file to disk.
var (
	ErrEnsureDir               = errors.New("ensure dir")
	ErrRead                    = errors.New("read file")
	ErrWrite                   = errors.New("write file")
	ErrInaccessiblePath        = errors.New("inaccessible path")
	ErrCannotCreateDirectories = errors.New("cannot create directories")
)

// EnsurePath ensures the directories for a file path exist and the path
// does not already exist as a directory.
func EnsurePath(p string) error {
	info, err := os.Stat(p)
	switch {
	case err == nil:
		if info.IsDir() {
			return ErrInaccessiblePath
		}
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return ErrInaccessiblePath
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ErrCannotCreateDirectories
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}
	return data, nil
}

// writeFile replaces the contents of path with data. The write goes through a
// temp file in the same directory followed by a rename, so readers never
// observe a half-written file. Every filesystem failure wraps ErrWrite.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "temp-persist-*")
	if err != nil {
		return fmt.Errorf("%w %s: create temp file: %w", ErrWrite, path, err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w %s: close temp file: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("%w %s: rename temp file: %w", ErrWrite, path, err)
	}
	return nil
}
