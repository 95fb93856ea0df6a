// Package uploads persists evidence photos and their append-only
// audit trail. Every photo that reaches the portal is recorded with
// the plate the operator submitted and the verdict at upload time,
// authorized or not. The photo bytes land on disk first; the audit
// row is appended only after the write succeeded, so a listed record
// always has its file.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"campusgate/internal/db"
	"campusgate/internal/fsutil"
	"campusgate/internal/jailfs"
)

// ErrBadFilename reports an upload whose name had nothing usable left
// after sanitizing.
var ErrBadFilename = errors.New("invalid filename")

// Store writes photos into the jail and audit rows into the database.
type Store struct {
	jail *jailfs.FS
	db   *db.DB
}

func NewStore(jail *jailfs.FS, d *db.DB) *Store {
	return &Store{jail: jail, db: d}
}

// Save stores one evidence photo and appends its audit record. The
// returned name is the filename actually used; when the sanitized
// name is already taken a short unique infix keeps concurrent uploads
// from overwriting each other. A failed append leaves the photo on
// disk but reports the error, so no record ever claims a write that
// did not complete.
func (s *Store) Save(ctx context.Context, filename string, src io.Reader, rawPlate string, authorized bool) (string, error) {
	clean := fsutil.SanitizeFilename(filename)
	if clean == "" {
		return "", ErrBadFilename
	}

	stored := clean
	f, err := s.jail.CreateNew(stored)
	if errors.Is(err, os.ErrExist) {
		stored = uniqueName(clean)
		f, err = s.jail.CreateNew(stored)
	}
	if err != nil {
		return "", fmt.Errorf("store photo %s: %w", clean, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write photo %s: %w", stored, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close photo %s: %w", stored, err)
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.AddUpload(ctx, stored, ts, rawPlate, authorized); err != nil {
		// The orphaned photo stays for manual recovery.
		return "", fmt.Errorf("append audit record for %s: %w", stored, err)
	}
	return stored, nil
}

// List returns the audit log, newest first.
func (s *Store) List(ctx context.Context) ([]db.Upload, error) {
	return s.db.ListUploads(ctx)
}

// Open returns a stored photo for serving. Unknown names and names
// that fail containment both come back as errors.
func (s *Store) Open(name string) (afero.File, os.FileInfo, error) {
	f, err := s.jail.Open(name)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return f, st, nil
}

// uniqueName splices a short random infix between base and extension.
func uniqueName(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
}
