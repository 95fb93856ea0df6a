package httpapi

import (
	"net/http"
	"strings"
)

// dbErrStatus maps a storage failure to a status code. Transient
// SQLite lock contention becomes 503 so callers retry; anything else
// is a plain 500.
func dbErrStatus(err error) int {
	if isRetryableDBErr(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// isRetryableDBErr identifies transient SQLite lock errors.
func isRetryableDBErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	// modernc/sqlite errors are commonly surfaced as strings containing these.
	return strings.Contains(s, "database is locked") ||
		strings.Contains(s, "sqlite_busy") ||
		strings.Contains(s, "busy") ||
		strings.Contains(s, "locked")
}
