// internal/content/clean.go
package content

import (
	"regexp"
	"strings"
)

var (
	labelPrefix = regexp.MustCompile(`^[^:]+:\s*`)
	parentheses = regexp.MustCompile(`\([^)]*\)`)
	brackets    = regexp.MustCompile(`\[[^\]]*\]`)
	spaces      = regexp.MustCompile(`\s{2,}`)
)

// Clean strips the decoration models like to add around a prompt: a leading
// "Label:" prefix, parenthesised or bracketed asides and surrounding quotes.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	text = labelPrefix.ReplaceAllString(text, "")
	text = parentheses.ReplaceAllString(text, "")
	text = brackets.ReplaceAllString(text, "")
	text = spaces.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	return strings.Trim(text, "\"")
}
