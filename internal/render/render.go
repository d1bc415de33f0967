// Package render fills digest templates. Placeholders are {{key}} tokens
// resolved from a flat string map; unknown keys render as empty strings so
// a stale template never breaks a send.
package render

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

const (
	// MaxMessageLength is the hard ceiling for an outbound message.
	MaxMessageLength = 3900
	truncateAt       = 3870
	truncateMarker   = "\n\n...truncated by Trend Sniffer"
)

// Render substitutes every placeholder in body from context.
func Render(body string, context map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		return context[key]
	})
}

// Truncate clips text that exceeds the message ceiling, appending a
// marker so the reader knows content was cut. Limits count runes so a
// multi-byte character is never split.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageLength {
		return text
	}
	return string(runes[:truncateAt]) + truncateMarker
}

// ListText numbers the first five items, or returns emptyMessage when
// there is nothing to list.
func ListText[T any](items []T, format func(T) string, emptyMessage string) string {
	n := len(items)
	if n == 0 {
		return emptyMessage
	}
	if n > 5 {
		n = 5
	}
	rows := make([]string, n)
	for i := 0; i < n; i++ {
		rows[i] = fmt.Sprintf("%d. %s", i+1, format(items[i]))
	}
	return strings.Join(rows, "\n")
}

// JoinOr joins values with commas, or returns fallback for an empty list.
func JoinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
