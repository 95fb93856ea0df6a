// Package webui embeds the portal's static pages: the operator
// dashboard and the login form. All dynamic data arrives over the
// JSON endpoints; the pages themselves never change per request.
package webui

import "embed"

// StaticFS holds embedded UI assets served by the HTTP server.
//
//go:embed static/*
var StaticFS embed.FS
