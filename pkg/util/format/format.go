package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	_  = iota
	KB = 1 << (10 * iota)
	MB
	GB
	TB
)

// FormatBytes renders b with a binary unit, without a fractional part
// for whole numbers: 4096 is "4KB", 1536 is "1.50KB".
func FormatBytes(b int64) string {
	val := float64(b)
	var unit string

	switch {
	case b >= TB:
		val /= float64(TB)
		unit = "TB"
	case b >= GB:
		val /= float64(GB)
		unit = "GB"
	case b >= MB:
		val /= float64(MB)
		unit = "MB"
	case b >= KB:
		val /= float64(KB)
		unit = "KB"
	default:
		return fmt.Sprintf("%dB", b)
	}

	if val == float64(int(val)) {
		return fmt.Sprintf("%.0f%s", val, unit)
	}
	return fmt.Sprintf("%.2f%s", val, unit)
}

// ParseBytes parses sizes like "4096", "0x1000", "4KB" or "1MB".
// Units are binary and case insensitive; a trailing "B" is optional.
func ParseBytes(s string) (uint64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	if strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}

	num := strings.TrimRight(s, "KMGTB")
	unit := strings.TrimSuffix(s[len(num):], "B")

	v, err := strconv.ParseUint(strings.TrimSpace(num), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	var mul uint64
	switch unit {
	case "":
		return v, nil
	case "K":
		mul = KB
	case "M":
		mul = MB
	case "G":
		mul = GB
	case "T":
		mul = TB
	default:
		return 0, fmt.Errorf("invalid size unit in %q", s)
	}

	if v > math.MaxUint64/mul {
		return 0, fmt.Errorf("size %q overflows 64 bits", s)
	}
	return v * mul, nil
}
