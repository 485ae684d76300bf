package format

import (
	"strconv"
	"strings"
)

// formatIndianInt renders n with Indian digit grouping: the last three
// digits form a group, every group above them has two, e.g. 1234567 ->
// "12,34,567".
func formatIndianInt(n int64) string {
	// Grouping works on the decimal text, so MinInt64 needs no special case.
	digits := strconv.FormatInt(n, 10)
	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}

	if len(digits) <= 3 {
		if negative {
			return "-" + digits
		}
		return digits
	}

	var groups []string
	groups = append(groups, digits[len(digits)-3:])
	rest := digits[:len(digits)-3]
	for len(rest) > 2 {
		groups = append(groups, rest[len(rest)-2:])
		rest = rest[:len(rest)-2]
	}
	if len(rest) > 0 {
		groups = append(groups, rest)
	}

	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}

	out := strings.Join(groups, ",")
	if negative {
		return "-" + out
	}
	return out
}

// formatIndianFloat groups the integer part and keeps two decimals.
func formatIndianFloat(f float64) string {
	negative := f < 0
	if negative {
		f = -f
	}

	whole := int64(f)
	dec := strconv.FormatFloat(f-float64(whole), 'f', 2, 64)
	out := formatIndianInt(whole) + strings.TrimPrefix(dec, "0")
	if negative {
		return "-" + out
	}
	return out
}
