// Package markdown projects threads into Markdown documents and writes
// them under a conversations directory.
package markdown

import (
	"strings"

	"github.com/btakita/correspondence-kit/internal/model"
)

// Render returns the Markdown document for t. It is a pure function of
// t, so re-archiving an unchanged thread yields identical bytes.
func Render(t *model.Thread) string {
	lines := []string{
		"# " + t.Subject,
		"",
		"**Label**: " + t.Label,
		"**Thread ID**: " + t.ID,
		"**Last updated**: " + t.LastDate,
		"",
	}

	for _, msg := range t.Messages {
		lines = append(lines,
			"---",
			"",
			"## "+msg.From+" — "+msg.Date,
			"",
			strings.TrimSpace(msg.Body),
			"",
		)
	}

	return strings.Join(lines, "\n")
}
