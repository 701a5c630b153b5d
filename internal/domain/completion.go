package domain

import (
	"fmt"
	"strings"
)

// ParseCompletion extracts the value of a single-line "<label>: <value>" oracle
// answer. Only the first colon separates label from value, so values may contain
// colons themselves.
func ParseCompletion(raw string) (string, error) {
	_, value, ok := strings.Cut(raw, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing ':' in %q", ErrEndpointFormat, raw)
	}

	return strings.TrimSpace(value), nil
}

var namePunctuation = strings.NewReplacer(".", "", "\"", "", "'", "", "`", "", "*", "")

// NormalizeInstanceName strips the formatting an oracle tends to wrap names in.
func NormalizeInstanceName(value string) string {
	return strings.TrimSpace(namePunctuation.Replace(value))
}
