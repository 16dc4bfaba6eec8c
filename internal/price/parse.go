package price

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePriceText extracts a number from loosely formatted market text such as
// "$1,234.56". Everything except digits, dots and commas is dropped and commas
// become dots. When several dots remain only one of them is kept as the decimal
// point (the last) and the digit groups in front of it are joined, so both
// "$1,234.56" and "1.234.56" read as 1234.56. This differs from the older
// first-dot reading, which turns "1.234.56" into 1.23456.
func ParsePriceText(text string) (float64, error) {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, fmt.Errorf("no numeric content in %q", text)
	}

	if parts := strings.Split(cleaned, "."); len(parts) > 2 {
		last := len(parts) - 1
		cleaned = strings.Join(parts[:last], "") + "." + parts[last]
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %w", text, err)
	}
	return value, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
