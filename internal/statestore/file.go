package statestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vk/ecow/internal/fingerprint"
)

// File stores fingerprint state as a JSON document on local disk.
type File struct {
	path string
}

// NewFile returns a store backed by the file at path. The file and its
// directory are created on the first save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the location of the state document.
func (f *File) Path() string { return f.path }

// Load implements fingerprint.Store.
func (f *File) Load(context.Context) (fingerprint.Map, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fingerprint.Map{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	m, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", f.path, err)
	}
	return m, nil
}

// Save implements fingerprint.Store. The document is written to a temporary
// file, synced and renamed over the previous one.
func (f *File) Save(_ context.Context, m fingerprint.Map) error {
	data, err := encodeDocument(m)
	if err != nil {
		return err
	}
	if err := writeFileAtomicDurable(f.path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

func writeFileAtomicDurable(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
