// Package web embeds the dashboard templates and static assets into the
// server binary.
package web

import "embed"

// TemplatesFS holds the dashboard page and its card partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
