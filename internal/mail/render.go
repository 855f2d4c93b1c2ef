package mail

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify))

// RenderSummaryHTML converts a markdown summary to HTML inside the styled email wrapper.
func RenderSummaryHTML(subject, summary string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(summary), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return "<div style='font-family:Inter,Segoe UI,Arial,sans-serif;line-height:1.6;color:#111827'>" +
		"<h2 style='margin:0 0 12px;font-size:20px'>" + html.EscapeString(subject) + "</h2>" +
		"<div>" + body.String() + "</div>" +
		"</div>", nil
}
