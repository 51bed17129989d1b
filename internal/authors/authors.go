// Package authors turns comment records into the list of usernames to classify.
package authors

import (
	"strings"

	"github.com/TobiSchelling/CommentGender/internal/youtube"
)

// MaxAuthors caps how many usernames a single run classifies.
const MaxAuthors = 15000

// Normalize strips one leading '@' from a display name.
func Normalize(author string) string {
	return strings.TrimPrefix(author, "@")
}

// Extract returns the distinct, non-empty authors of comments in first-appearance
// order, normalized, truncated to the first max entries. A max of 0 or less uses
// MaxAuthors.
func Extract(comments []youtube.Comment, max int) []string {
	if max <= 0 {
		max = MaxAuthors
	}

	seen := make(map[string]bool)
	names := make([]string, 0, min(len(comments), max))
	for _, c := range comments {
		if len(names) >= max {
			break
		}
		name := Normalize(c.Author)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
