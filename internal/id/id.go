package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// New returns a fresh record identifier.
func New() string {
	return uuid.NewString()
}

// FormatEntryNumber returns a display number like "JE/202401/0001".
func FormatEntryNumber(prefix string, year, month, seq int) string {
	return fmt.Sprintf("%s/%04d%02d/%04d", prefix, year, month, seq)
}

// ParseEntryNumber parses "JE/202401/0001" into prefix, year, month, seq.
func ParseEntryNumber(number string) (prefix string, year, month, seq int, err error) {
	parts := strings.Split(number, "/")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, 0, fmt.Errorf("invalid entry number format: %q", number)
	}

	ym := parts[1]
	if len(ym) != 6 {
		return "", 0, 0, 0, fmt.Errorf("invalid year-month in entry number %q", number)
	}

	year, err = strconv.Atoi(ym[:4])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid year in entry number %q: %w", number, err)
	}

	month, err = strconv.Atoi(ym[4:])
	if err != nil || month < 1 || month > 12 {
		return "", 0, 0, 0, fmt.Errorf("invalid month in entry number %q", number)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid sequence in entry number %q: %w", number, err)
	}

	return parts[0], year, month, seq, nil
}
