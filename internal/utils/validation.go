package utils

import (
	"fmt"
	"time"
)

// ValidatePriority checks if priority is within valid range (0-9)
func ValidatePriority(priority int) error {
	if priority < 0 || priority > 9 {
		return fmt.Errorf("priority must be between 0-9 (0=unset, 1=highest, 9=lowest)")
	}
	return nil
}

// ParseDateFlag parses a date string in ISO format (YYYY-MM-DD).
// Returns nil for empty strings.
func ParseDateFlag(dateStr string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}

	parsedDate, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date format '%s': expected YYYY-MM-DD (e.g., 2026-01-31)", dateStr)
	}

	return &parsedDate, nil
}
