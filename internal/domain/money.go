package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatCents renders an amount in minor units as "199.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseCents reads a decimal amount such as "180", "180.5" or "180.50" into
// minor units. More than two fractional digits is an error.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q: %w", s, ErrInvalidRequest)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimals: %w", s, ErrInvalidRequest)
	}

	var units, minor uint64
	var err error
	if whole != "" {
		if units, err = strconv.ParseUint(whole, 10, 64); err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, ErrInvalidRequest)
		}
		if units > (math.MaxInt64-99)/100 {
			return 0, fmt.Errorf("amount %q is too large: %w", s, ErrInvalidRequest)
		}
	}
	if frac != "" {
		if minor, err = strconv.ParseUint(frac+strings.Repeat("0", 2-len(frac)), 10, 8); err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, ErrInvalidRequest)
		}
	}

	cents := int64(units)*100 + int64(minor)
	if neg {
		cents = -cents
	}
	return cents, nil
}
