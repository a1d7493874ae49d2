package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// ResourceLoader opens named script resources. Implementations return an
// error wrapping ErrNotFound when name does not exist.
type ResourceLoader interface {
	Open(name string) ([]byte, error)
}

// DirLoader loads resources from a directory on disk. Names are
// slash-separated and may not escape Root.
type DirLoader struct {
	Root string
}

// Open reads Root/name.
func (l DirLoader) Open(name string) ([]byte, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != name {
		return nil, fmt.Errorf("%w: invalid resource name %q", ErrNotFound, name)
	}
	data, err := os.ReadFile(filepath.Join(l.Root, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("schema: read %s: %w", name, err)
	}
	return data, nil
}

// FSLoader loads resources from an fs.FS, typically an embed.FS.
type FSLoader struct {
	FS fs.FS
}

// Open reads name from the file system.
func (l FSLoader) Open(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: invalid resource name %q", ErrNotFound, name)
	}
	data, err := fs.ReadFile(l.FS, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("schema: read %s: %w", name, err)
	}
	return data, nil
}
