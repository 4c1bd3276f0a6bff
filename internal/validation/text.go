// Package validation - text.go sanitizes untrusted free-text fields at the API
// boundary before they reach the database.
//
// JSON request bodies can carry any type in any field: a caller probing for
// injection may send an object or array where a string is expected. Every
// free-text field is therefore coerced to a plain string here, independent of
// any protection the storage layer provides — the caller's input type is never
// reflected into a query or control path.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxReasonLength bounds moderation reasons and similar free-text fields.
const MaxReasonLength = 1000

// Stringify coerces an arbitrary decoded JSON value to its string
// representation. Strings pass through unchanged; nil yields the empty string;
// objects, arrays, numbers, and booleans are rendered as their JSON text so the
// stored value is always a flat string.
func Stringify(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// SanitizeFreeText coerces v to a string, trims surrounding whitespace, and
// truncates to maxLen runes. maxLen <= 0 means unbounded.
func SanitizeFreeText(v interface{}, maxLen int) string {
	s := strings.TrimSpace(Stringify(v))
	if maxLen > 0 {
		runes := []rune(s)
		if len(runes) > maxLen {
			s = string(runes[:maxLen])
		}
	}
	return s
}
