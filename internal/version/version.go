// Package version carries the build version string.
package version

// Version is stamped at release time via -ldflags.
var Version = "0.0.0-dev"
