package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxReadSize bounds ReadFileInRoot. Export documents are far smaller.
const MaxReadSize = 32 << 20

var (
	ErrPathEscapes  = errors.New("path escapes directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrFileExists   = errors.New("file already exists")
	ErrFileTooLarge = errors.New("file too large")
)

// PathValidator confines file operations to one directory using os.Root,
// so that a name containing .. or a symlink cannot reach outside it.
type PathValidator struct {
	root *os.Root
	dir  string
}

// New opens dir as the root for subsequent operations.
func New(dir string) (*PathValidator, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}

	return &PathValidator{
		root: root,
		dir:  absPath,
	}, nil
}

// ForFile splits path into its directory, opened as a PathValidator, and
// the file name relative to it.
func ForFile(path string) (*PathValidator, string, error) {
	if path == "" {
		return nil, "", ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	pv, err := New(filepath.Dir(abs))
	if err != nil {
		return nil, "", err
	}
	return pv, filepath.Base(abs), nil
}

// Dir returns the absolute directory the validator is confined to.
func (pv *PathValidator) Dir() string {
	return pv.dir
}

// Close releases resources held by the PathValidator.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// ValidateAndNormalize validates a user-provided path and returns it
// relative to the root with forward slashes. It rejects empty, absolute and
// escaping paths as well as reserved names.
func (pv *PathValidator) ValidateAndNormalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(filepath.Clean(userPath)), nil
}

// WriteFileInRoot writes data to a new file inside the root. An existing
// file is only replaced when overwrite is set.
func (pv *PathValidator) WriteFileInRoot(path string, data []byte, perm os.FileMode, overwrite bool) (err error) {
	platformPath := filepath.FromSlash(path)
	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := pv.root.OpenFile(platformPath, flags, perm)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrFileExists, path)
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	// O_CREATE applies perm only to new files.
	if overwrite {
		if err := f.Chmod(perm); err != nil {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
	}

	_, err = f.Write(data)
	return err
}

// ReadFileInRoot reads a file inside the root, up to MaxReadSize bytes.
func (pv *PathValidator) ReadFileInRoot(path string) ([]byte, error) {
	platformPath := filepath.FromSlash(path)
	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	f, err := pv.root.Open(platformPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxReadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxReadSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, path)
	}
	return data, nil
}

// StatInRoot stats a file inside the root.
func (pv *PathValidator) StatInRoot(path string) (os.FileInfo, error) {
	platformPath := filepath.FromSlash(path)
	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Stat(platformPath)
}
