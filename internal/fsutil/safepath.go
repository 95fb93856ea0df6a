// Package fsutil guards every filesystem path derived from request
// input: evidence photo names on the way in, stored filenames on the
// way back out.
package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrPathTraversal = errors.New("path escapes root")

// ResolveWithinRoot maps a user-provided path to a local filesystem
// path under root. It rejects any traversal outside root, including
// via existing symlinks.
func ResolveWithinRoot(root, userPath string) (string, error) {
	if root == "" {
		return "", errors.New("root is required")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rootAbs = filepath.Clean(rootAbs)

	// Force relative paths.
	rel := filepath.FromSlash(strings.TrimLeft(userPath, "/\\"))
	joined := filepath.Clean(filepath.Join(rootAbs, rel))

	if !isWithin(rootAbs, joined) {
		return "", ErrPathTraversal
	}

	// Any existing component under root that is a symlink gets
	// rejected outright rather than followed.
	if symlinkInPath(rootAbs, joined) {
		return "", ErrPathTraversal
	}

	// If the nearest existing ancestor resolves outside root, block it.
	if existing := nearestExisting(joined); existing != "" {
		resolved, err := filepath.EvalSymlinks(existing)
		if err != nil {
			return "", err
		}
		if !isWithin(rootAbs, filepath.Clean(resolved)) {
			return "", ErrPathTraversal
		}
	}

	return joined, nil
}

// symlinkInPath walks the components of fullPath below rootAbs and
// reports whether any existing one is a symlink.
func symlinkInPath(rootAbs, fullPath string) bool {
	rel, err := filepath.Rel(rootAbs, fullPath)
	if err != nil {
		return true
	}
	rel = filepath.Clean(rel)
	if rel == "." {
		return false
	}
	cur := rootAbs
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "" || part == "." {
			continue
		}
		cur = filepath.Join(cur, part)
		st, err := os.Lstat(cur)
		if err != nil {
			// Component doesn't exist (yet): nothing to traverse.
			return false
		}
		if st.Mode()&os.ModeSymlink != 0 {
			return true
		}
	}
	return false
}

func isWithin(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)
	if root == candidate {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(candidate, root)
}

func nearestExisting(p string) string {
	cur := p
	for {
		_, err := os.Lstat(cur)
		if err == nil {
			return cur
		}
		if !os.IsNotExist(err) {
			return ""
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return ""
		}
		cur = parent
	}
}
