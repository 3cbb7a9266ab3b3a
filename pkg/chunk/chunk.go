// Package chunk splits long text into size-bounded segments and joins them back.
//
// Limits are expressed in characters (runes) so a segment boundary never falls
// inside a multi-byte UTF-8 sequence.
package chunk

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrLengthMismatch reports that reassembled text does not match its recorded length.
var ErrLengthMismatch = errors.New("chunk: reassembled length mismatch")

// Field is the stored form of a possibly oversized text value.
type Field struct {
	Primary  string
	Overflow []string
}

// Encode splits text into a primary segment of at most limit characters followed by
// limit-sized overflow segments. Text shorter than limit is returned as-is with no overflow.
// A limit below 1 is treated as 1.
func Encode(text string, limit int) Field {
	if limit < 1 {
		limit = 1
	}
	if utf8.RuneCountInString(text) <= limit {
		return Field{Primary: text}
	}

	primary, rest := cut(text, limit)
	field := Field{Primary: primary}
	for rest != "" {
		var segment string
		segment, rest = cut(rest, limit)
		field.Overflow = append(field.Overflow, segment)
	}
	return field
}

// Decode concatenates the primary segment and overflow segments in order.
func Decode(f Field) string {
	if len(f.Overflow) == 0 {
		return f.Primary
	}
	size := len(f.Primary)
	for _, segment := range f.Overflow {
		size += len(segment)
	}
	var b strings.Builder
	b.Grow(size)
	b.WriteString(f.Primary)
	for _, segment := range f.Overflow {
		b.WriteString(segment)
	}
	return b.String()
}

// DecodeChecked decodes f and verifies the result has exactly expected characters.
func DecodeChecked(f Field, expected int) (string, error) {
	text := Decode(f)
	if got := utf8.RuneCountInString(text); got != expected {
		return "", fmt.Errorf("%w: expected %d characters, got %d", ErrLengthMismatch, expected, got)
	}
	return text, nil
}

// Segments returns the number of segments used by f.
func (f Field) Segments() int {
	return 1 + len(f.Overflow)
}

// cut returns the first n runes of s and the remainder.
func cut(s string, n int) (string, string) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], s[i:]
		}
		count++
	}
	return s, ""
}
