// Package units converts storage quantities between megabytes and whole
// gigabytes the way quota checks expect them.
package units

const mbPerGB = 1024

// CeilGB converts megabytes of consumption to whole gigabytes, rounding up.
// Consumption never rounds in the tenant's favor.
func CeilGB(mb float64) int64 {
	if mb <= 0 {
		return 0
	}
	gb := int64(mb) / mbPerGB
	if float64(gb*mbPerGB) < mb {
		gb++
	}
	return gb
}

// NearestGB converts a megabyte base limit to whole gigabytes, rounding to
// the nearest whole unit (half rounds up).
func NearestGB(mb int64) int64 {
	if mb <= 0 {
		return 0
	}
	return (mb + mbPerGB/2) / mbPerGB
}
