// Package match pairs the names a manifest wants with the files a remote
// listing offers.
//
// Both sides are keyed by the same heuristic: a trailing dot followed by one
// to three ASCII letters or digits is dropped. "Game (USA).zip" and
// "Game (USA)" therefore meet at "Game (USA)". The heuristic is deliberately
// naive and must stay identical on both sides; "Tool v1.0" becomes "Tool v1".
package match

import (
	"regexp"
	"strings"

	"github.com/datallboy/dltool/internal/domain"
)

var extSuffix = regexp.MustCompile(`\.[a-zA-Z0-9]{1,3}\z`)

// Normalize returns the canonical match key for a file name.
func Normalize(name string) string {
	return extSuffix.ReplaceAllString(name, "")
}

// Unique drops repeated names, keeping the first occurrence.
func Unique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Filter keeps the names containing substr, ignoring case.
// An empty substr keeps everything.
func Filter(names []string, substr string) []string {
	if substr == "" {
		return names
	}

	needle := strings.ToLower(substr)
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), needle) {
			out = append(out, n)
		}
	}
	return out
}

// Index keys available items by canonical name. A later duplicate replaces
// an earlier one.
func Index(items []domain.AvailableItem) map[string]domain.AvailableItem {
	idx := make(map[string]domain.AvailableItem, len(items))
	for _, it := range items {
		idx[it.Name] = it
	}
	return idx
}
