package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrValidationFailed marks malformed or missing required input. Handlers
// map it to a 400; it is never guessed around.
var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	MaxPropertyNameLength = 255
	MaxURLLength          = 512
	MaxPeriodNameLength   = 64
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

var airbnbRoomsRegex = regexp.MustCompile(`rooms/(\d+)`)

// ValidateAirbnbURL checks the URL shape and returns the listing ID when
// the URL carries one.
func ValidateAirbnbURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("%w: airbnb URL cannot be empty", ErrValidationFailed)
	}
	if err := ValidateStringMaxLength(trimmed, MaxURLLength, "airbnb URL"); err != nil {
		return "", err
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return "", fmt.Errorf("%w: airbnb URL must start with http:// or https://", ErrValidationFailed)
	}
	matches := airbnbRoomsRegex.FindStringSubmatch(trimmed)
	if matches == nil {
		return "", nil // URL accepted, no extractable listing ID
	}
	return matches[1], nil
}

// ValidatePropertyName checks length and content of a user-supplied
// property name.
func ValidatePropertyName(name string) error {
	if err := ValidateStringNotEmpty(name, "property name"); err != nil {
		return err
	}
	return ValidateStringMaxLength(name, MaxPropertyNameLength, "property name")
}

// ValidateNonNegative rejects negative numeric fields that have no signed
// meaning (nights, counts, totals).
func ValidateNonNegative(v float64, fieldName string) error {
	if v < 0 {
		return fmt.Errorf("%w: %s cannot be negative", ErrValidationFailed, fieldName)
	}
	return nil
}
