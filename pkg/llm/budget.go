package llm

import "unicode/utf8"

// DefaultBytesPerToken approximates tokenizer output for latin text.
const DefaultBytesPerToken = 4

// EstimateTokens returns ceil(len(bytes)/bytesPerToken).
func EstimateTokens(s string, bytesPerToken int) int {
	if bytesPerToken <= 0 {
		bytesPerToken = DefaultBytesPerToken
	}
	n := len(s)
	if n == 0 {
		return 0
	}
	return (n + bytesPerToken - 1) / bytesPerToken
}

// Truncate cuts s so its estimated token count stays within maxTokens.
// The cut never splits a UTF-8 sequence. maxTokens <= 0 disables truncation.
func Truncate(s string, maxTokens, bytesPerToken int) (string, bool) {
	if maxTokens <= 0 {
		return s, false
	}
	if bytesPerToken <= 0 {
		bytesPerToken = DefaultBytesPerToken
	}
	limit := maxTokens * bytesPerToken
	if len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
