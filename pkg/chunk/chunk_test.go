package chunk

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeShortTextHasNoOverflow(t *testing.T) {
	field := Encode("bonjour", 10)
	assert.Equal(t, "bonjour", field.Primary)
	assert.Empty(t, field.Overflow)
	assert.Equal(t, 1, field.Segments())
}

func TestEncodeExactLimitHasNoOverflow(t *testing.T) {
	field := Encode("abcde", 5)
	assert.Equal(t, "abcde", field.Primary)
	assert.Empty(t, field.Overflow)
}

func TestEncodeSplitsIntoLimitSizedSegments(t *testing.T) {
	field := Encode("abcdefghijk", 4)
	assert.Equal(t, "abcd", field.Primary)
	assert.Equal(t, []string{"efgh", "ijk"}, field.Overflow)
}

func TestEncodeEmptyText(t *testing.T) {
	field := Encode("", 3)
	assert.Equal(t, "", field.Primary)
	assert.Empty(t, field.Overflow)
	assert.Equal(t, "", Decode(field))
}

func TestEncodeNonPositiveLimit(t *testing.T) {
	field := Encode("abc", 0)
	assert.Equal(t, "a", field.Primary)
	assert.Equal(t, []string{"b", "c"}, field.Overflow)
}

func TestEncodeDoesNotSplitRunes(t *testing.T) {
	text := "élève à l'école"
	field := Encode(text, 3)
	require.Equal(t, "élè", field.Primary)
	for _, segment := range field.Overflow {
		assert.True(t, utf8.ValidString(segment))
	}
	assert.Equal(t, text, Decode(field))
}

func TestRoundTripAndSegmentBounds(t *testing.T) {
	texts := []string{
		"",
		"a",
		strings.Repeat("x", 17),
		strings.Repeat("ça va ", 41),
		"Copie n°1 : la dissertation porte sur le thème de la liberté.",
	}
	for _, text := range texts {
		for limit := 1; limit <= 9; limit++ {
			field := Encode(text, limit)
			require.Equal(t, text, Decode(field), "limit %d", limit)

			segments := append([]string{field.Primary}, field.Overflow...)
			for i, segment := range segments {
				n := utf8.RuneCountInString(segment)
				assert.LessOrEqual(t, n, limit)
				if len(field.Overflow) > 0 && i < len(segments)-1 {
					assert.Equal(t, limit, n, "limit %d segment %d", limit, i)
				}
			}
		}
	}
}

func TestDecodeChecked(t *testing.T) {
	field := Encode("abcdefgh", 3)
	text, err := DecodeChecked(field, 8)
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", text)

	field.Overflow = field.Overflow[:1]
	_, err = DecodeChecked(field, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}
