package textutil

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
	"&lt;", "<",
	"&gt;", ">",
)

// StripTags removes markup from feed-provided text: tags become spaces,
// common entities are decoded and whitespace is collapsed.
func StripTags(text string) string {
	if text == "" {
		return ""
	}
	out := tagPattern.ReplaceAllString(text, " ")
	out = entityReplacer.Replace(out)
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

var horizontalSpacePattern = regexp.MustCompile(`[ \t]+`)

// StripTagsKeepLines removes markup like StripTags but preserves line
// breaks, for multi-line template bodies.
func StripTagsKeepLines(text string) string {
	if text == "" {
		return ""
	}
	out := tagPattern.ReplaceAllString(text, " ")
	out = entityReplacer.Replace(out)
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpacePattern.ReplaceAllString(line, " "))
	}
	return strings.Join(lines, "\n")
}
