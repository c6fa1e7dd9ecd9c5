package canvas

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStorage keeps the buffer in a single flat file.
type FileStorage struct {
	path string
	f    *os.File
}

// OpenFile opens the pixel file at path, creating it and its parent
// directories when missing.
func OpenFile(path string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileStorage{path: path, f: f}, nil
}

func (fs *FileStorage) Size(_ context.Context) (int64, error) {
	info, err := fs.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (fs *FileStorage) Load(ctx context.Context) ([]byte, error) {
	size, err := fs.Size(ctx)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := fs.f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (fs *FileStorage) ReadByteAt(_ context.Context, off int64) (byte, error) {
	var b [1]byte
	if _, err := fs.f.ReadAt(b[:], off); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (fs *FileStorage) WriteAt(_ context.Context, p []byte, off int64) error {
	_, err := fs.f.WriteAt(p, off)
	return err
}

// Replace writes buf to a temporary file next to the pixel file and renames
// it into place. The temporary file's handle becomes the live handle, so
// once the rename succeeds nothing else can fail.
func (fs *FileStorage) Replace(_ context.Context, buf []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return err
	}
	fail := func(msg string, err error) error {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%s: %w", msg, err)
	}

	if _, err := tmp.Write(buf); err != nil {
		return fail("error writing temporary file", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail("error setting temporary file mode", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("error syncing temporary file", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fail("error swapping pixel file", err)
	}

	fs.f.Close()
	fs.f = tmp
	return nil
}

func (fs *FileStorage) Close() error {
	return fs.f.Close()
}
