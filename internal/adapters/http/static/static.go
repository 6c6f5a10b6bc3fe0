// Package static embeds the stylesheet and script served under /static/.
package static

import "embed"

// FS holds the static assets.
//
//go:embed *.css *.js
var FS embed.FS
