package web

import "embed"

// Templates embeds the HTML documents rendered to PDF.
//
//go:embed templates/invoice/*.html
var Templates embed.FS
