// Package xsize formats byte counts for humans.
package xsize

import (
	"fmt"
	"math"
)

var units = []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei", "Zi"}

// Format returns n as a human-readable size using binary prefixes, with one
// decimal place, e.g. "512.0B", "1.5KiB", "3.2GiB". It picks the smallest unit
// for which the rounded value is below 1024, and falls back to "Yi" for anything
// larger than the unit table covers.
func Format(n int64) string {
	num := float64(n)
	for _, unit := range units {
		if math.Abs(math.Round(num*10)/10) < 1024 {
			return fmt.Sprintf("%.1f%sB", num, unit)
		}
		num /= 1024
	}

	return fmt.Sprintf("%.1fYiB", num)
}
