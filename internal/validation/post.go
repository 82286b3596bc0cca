package validation

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Post field limits.
const (
	MaxTags           = 20
	MaxTagLen         = 64
	MaxDescriptionLen = 5000
	MaxLocationLen    = 255
	MaxCommentLen     = 10000
)

// NormalizeTags trims and lowercases tags, drops blanks and duplicates, and
// returns them sorted.
func NormalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLen {
			return nil, fmt.Errorf("tag %q is longer than %d characters", tag, MaxTagLen)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return nil, fmt.Errorf("at most %d tags are allowed", MaxTags)
	}
	sort.Strings(out)
	return out, nil
}

// ValidatePostText checks description and location lengths.
func ValidatePostText(description, location string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return fmt.Errorf("description must be at most %d characters", MaxDescriptionLen)
	}
	if utf8.RuneCountInString(location) > MaxLocationLen {
		return fmt.Errorf("location must be at most %d characters", MaxLocationLen)
	}
	return nil
}

// NormalizeCommentBody trims body and rejects empty or oversized comments.
func NormalizeCommentBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("comment body is required")
	}
	if utf8.RuneCountInString(body) > MaxCommentLen {
		return "", fmt.Errorf("comment body must be at most %d characters", MaxCommentLen)
	}
	return body, nil
}
