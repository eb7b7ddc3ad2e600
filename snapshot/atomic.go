package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// atomicFile writes to a temporary file next to path and renames it over
// path on commit, so readers never see a partially written snapshot.
// The directory of path must already exist. The file is created with
// filePerm filtered by the process umask.
type atomicFile struct {
	path string
	tmp  *os.File
}

func createAtomic(path string) (*atomicFile, error) {
	name := filepath.Join(filepath.Dir(path), ".snapshot-"+uuid.NewString()+".tmp")
	tmp, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &atomicFile{path: path, tmp: tmp}, nil
}

func (f *atomicFile) Write(p []byte) (int, error) {
	return f.tmp.Write(p)
}

func (f *atomicFile) commit() error {
	if err := f.tmp.Sync(); err != nil {
		f.abort()
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (f *atomicFile) abort() {
	_ = f.tmp.Close()
	_ = os.Remove(f.tmp.Name())
}
