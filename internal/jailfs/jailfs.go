// Package jailfs confines evidence photo storage to the uploads
// directory. Every name passes a containment check before it touches
// the backing filesystem, so a crafted filename cannot address
// anything outside the jail.
package jailfs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"campusgate/internal/fsutil"
)

type FS struct {
	root    string
	backing afero.Fs
	// strict enables host symlink verification; only meaningful when
	// the backing is the real OS filesystem.
	strict bool
}

// New jails the host filesystem under root.
func New(root string) *FS {
	return &FS{root: root, backing: afero.NewOsFs(), strict: true}
}

// NewWith runs the jail on any afero filesystem. Host symlink checks
// are skipped since such backings cannot hold symlinks; tests pass
// afero.NewMemMapFs().
func NewWith(root string, backing afero.Fs) *FS {
	return &FS{root: root, backing: backing}
}

// EnsureRoot creates the jail directory if it is missing.
func (f *FS) EnsureRoot() error {
	return f.backing.MkdirAll(filepath.Clean(f.root), 0o750)
}

// CreateNew opens name for writing and fails if it already exists,
// so concurrent uploads can never overwrite each other's evidence.
func (f *FS) CreateNew(name string) (afero.File, error) {
	p, err := f.local(name)
	if err != nil {
		return nil, err
	}
	return f.backing.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
}

// Open opens a stored file for reading.
func (f *FS) Open(name string) (afero.File, error) {
	p, err := f.local(name)
	if err != nil {
		return nil, err
	}
	return f.backing.Open(p)
}

// Stat reports on a stored file.
func (f *FS) Stat(name string) (os.FileInfo, error) {
	p, err := f.local(name)
	if err != nil {
		return nil, err
	}
	return f.backing.Stat(p)
}

func (f *FS) local(name string) (string, error) {
	if f.strict {
		return fsutil.ResolveWithinRoot(f.root, name)
	}
	root := filepath.Clean(f.root)
	rel := filepath.FromSlash(strings.TrimLeft(name, "/\\"))
	p := filepath.Clean(filepath.Join(root, rel))
	if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
		return "", fsutil.ErrPathTraversal
	}
	return p, nil
}
