package service

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	maxSlugWords  = 6
	maxSlugPrefix = 60
)

// newSlug derives "<first-words-of-description>-<random suffix>". The suffix
// makes collisions unlikely; callers still retry on a unique violation.
func newSlug(description string) string {
	words := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	})
	if len(words) > maxSlugWords {
		words = words[:maxSlugWords]
	}

	prefix := strings.Join(words, "-")
	if len(prefix) > maxSlugPrefix {
		prefix = strings.TrimRight(prefix[:maxSlugPrefix], "-")
	}
	if prefix == "" {
		prefix = "post"
	}
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
