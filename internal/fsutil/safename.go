package fsutil

import (
	"path"
	"regexp"
	"strings"
)

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces an uploaded filename to a safe flat name:
// directory components are stripped, whitespace runs become a single
// underscore, anything outside [A-Za-z0-9_.-] is dropped, and leading
// or trailing dots and underscores are trimmed. The result can never
// address another directory or hide as a dotfile. An empty result
// means the input had no usable name; callers must reject it.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeNameRe.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
