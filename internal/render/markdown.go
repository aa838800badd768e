// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// htmlSanitizer strips unsafe HTML from rendered page content.
// UGCPolicy allows the safe markup subset for user-generated content.
var htmlSanitizer = bluemonday.UGCPolicy()

// Markdown converts markdown page content to sanitized HTML
// for template embedding.
func Markdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		// Fall back to the sanitized raw text
		return template.HTML(htmlSanitizer.Sanitize(content)) //nolint:gosec // sanitized above
	}
	return template.HTML(htmlSanitizer.Sanitize(buf.String())) //nolint:gosec // sanitized above
}
