package usecase

import (
	"regexp"
	"strings"
)

// Literal substitutions applied per line before synthesis, in order.
// This is a textual cleanup, not a markdown parser; nested or malformed
// markup may be only partially cleaned.
var markdownRules = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},      // **bold**
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},          // *italic*
	{regexp.MustCompile(`__([^_]+)__`), "$1"},          // __bold__
	{regexp.MustCompile(`_([^_]+)_`), "$1"},            // _italic_
	{regexp.MustCompile("`([^`]+)`"), "$1"},            // `code`
	{regexp.MustCompile(`~~([^~]+)~~`), "$1"},          // ~~strikethrough~~
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"}, // [text](url)
	{regexp.MustCompile(`^#+\s*`), ""},                 // ### header
	{regexp.MustCompile(`^\s*[-*+]\s+`), ""},           // - item
	{regexp.MustCompile(`^\s*\d+\.\s+`), ""},           // 1. item
}

// StripMarkdown removes inline markdown markup from a single reply line so
// the synthesizer does not read punctuation aloud.
func StripMarkdown(line string) string {
	for _, rule := range markdownRules {
		line = rule.pattern.ReplaceAllString(line, rule.repl)
	}
	return strings.TrimSpace(line)
}
