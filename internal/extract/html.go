// Package extract holds the worker's domain extractors (C7): pure functions
// over title/item-specifics/description text that pull out structured
// jewelry, watch, and gemstone attributes. Nothing here does I/O — every
// function is a string (or []ItemSpecific) in, typed value out.
package extract

import (
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// CleanDescription strips HTML tags and decodes entities (named, via the
// standard library table, and numeric) from a raw listing description, so
// downstream regexes see plain text.
func CleanDescription(raw string) string {
	noTags := tagPattern.ReplaceAllString(raw, " ")
	decoded := html.UnescapeString(noTags)
	return strings.Join(strings.Fields(decoded), " ")
}

// FindSpec returns the value of the first item specific whose name matches
// (case-insensitively) any of names, and whether one was found.
func FindSpec(specifics []ItemSpecific, names ...string) (string, bool) {
	for _, want := range names {
		for _, s := range specifics {
			if strings.EqualFold(strings.TrimSpace(s.Name), want) {
				return strings.TrimSpace(s.Value), true
			}
		}
	}
	return "", false
}

// ItemSpecific mirrors store.ItemSpecific / upstream.LocalizedAspect without
// importing either — extract is a leaf package the rest of the worker
// depends on, not the other way around.
type ItemSpecific struct {
	Name  string
	Value string
}
