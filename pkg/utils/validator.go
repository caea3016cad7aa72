package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	// names like "Order", "Order Item", "orders.remove_shipment"
	identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 _.\-]*$`)
)

// MaxIdentifierLength bounds document type names, field names and custom calls
const MaxIdentifierLength = 140

// ValidateIdentifier checks a document type, field or custom call name taken from user input
func ValidateIdentifier(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", kind)
	}
	if len(value) > MaxIdentifierLength {
		return fmt.Errorf("%s exceeds %d characters", kind, MaxIdentifierLength)
	}
	if !identifierPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", kind, value)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
