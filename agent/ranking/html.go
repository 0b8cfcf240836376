package ranking

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	entityReplacer    = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// Excerpt limits per call site.
const (
	ExcerptList     = 200
	ExcerptCompact  = 150
	ExcerptDetail   = 600
	excerptEllipsis = "..."
)

// CleanHTML strips tags and the common entities from rich-text descriptions.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	out := tagPattern.ReplaceAllString(s, " ")
	out = entityReplacer.Replace(out)
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Excerpt cleans s and cuts it to at most max runes, marking the cut.
func Excerpt(s string, max int) string {
	clean := CleanHTML(s)
	if max <= 0 || utf8.RuneCountInString(clean) <= max {
		return clean
	}
	runes := []rune(clean)
	return strings.TrimSpace(string(runes[:max])) + excerptEllipsis
}
