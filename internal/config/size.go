package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var sizeScales = map[rune]uint64{
	'b': 1,
	'k': 1 << 10,
	'm': 1 << 20,
	'g': 1 << 30,
}

// ParseSize parses a byte count with an optional b, k, m or g suffix
// (case insensitive, powers of 1024). "0" is valid and means not set.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty size", ErrConfig)
	}

	scale := uint64(1)
	last := rune(s[len(s)-1])
	if !unicode.IsDigit(last) {
		var ok bool
		scale, ok = sizeScales[unicode.ToLower(last)]
		if !ok {
			return 0, fmt.Errorf("%w: illegal size specifier %q in %q", ErrConfig, last, s)
		}
		s = s[:len(s)-1]
	}

	val, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid size %q", ErrConfig, s)
	}
	if val > math.MaxUint64/scale {
		return 0, fmt.Errorf("%w: size %q overflows", ErrConfig, s)
	}

	return val * scale, nil
}

// FormatSize renders a byte count in the shortest exact suffixed form,
// the inverse of ParseSize
func FormatSize(n uint64) string {
	switch {
	case n == 0:
		return "0"
	case n%(1<<30) == 0:
		return fmt.Sprintf("%dg", n>>30)
	case n%(1<<20) == 0:
		return fmt.Sprintf("%dm", n>>20)
	case n%(1<<10) == 0:
		return fmt.Sprintf("%dk", n>>10)
	}
	return strconv.FormatUint(n, 10)
}
