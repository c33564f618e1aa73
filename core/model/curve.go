package model

import (
	"fmt"
	"sort"
)

// CurveBin limits the charge power while the SoC lies in [SoCLower, SoCUpper).
type CurveBin struct {
	SoCLower   float64 `json:"soc_lb" yaml:"soc_lb"`
	SoCUpper   float64 `json:"soc_ub" yaml:"soc_ub"`
	MaxPowerKW float64 `json:"p_max_kw" yaml:"p_max_kw"`
}

// Contains reports whether soc falls inside the bin.
func (b CurveBin) Contains(soc float64) bool {
	return b.SoCLower <= soc && soc < b.SoCUpper
}

// PowerCurve maps SoC ranges to a maximum charge power. Bins never overlap,
// so at most one bin matches a given SoC. A PowerCurve is immutable.
type PowerCurve struct {
	bins []CurveBin
}

// Interval is a half-open SoC range [Lower, Upper).
type Interval struct {
	Lower float64
	Upper float64
}

// NewPowerCurve sorts and validates the bins.
func NewPowerCurve(bins ...CurveBin) (*PowerCurve, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("power curve: at least one bin is required")
	}
	sorted := make([]CurveBin, len(bins))
	copy(sorted, bins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SoCLower < sorted[j].SoCLower })
	for i, b := range sorted {
		if b.SoCLower >= b.SoCUpper {
			return nil, fmt.Errorf("power curve: bin [%v,%v) is empty", b.SoCLower, b.SoCUpper)
		}
		if b.MaxPowerKW < 0 {
			return nil, fmt.Errorf("power curve: bin [%v,%v) has negative power", b.SoCLower, b.SoCUpper)
		}
		if i > 0 && b.SoCLower < sorted[i-1].SoCUpper {
			return nil, fmt.Errorf("power curve: bins [%v,%v) and [%v,%v) overlap",
				sorted[i-1].SoCLower, sorted[i-1].SoCUpper, b.SoCLower, b.SoCUpper)
		}
	}
	return &PowerCurve{bins: sorted}, nil
}

// Lookup returns the bin covering soc or ErrNoMatchingBin.
func (c *PowerCurve) Lookup(soc float64) (CurveBin, error) {
	// first bin whose upper bound lies above soc
	i := sort.Search(len(c.bins), func(i int) bool { return c.bins[i].SoCUpper > soc })
	if i < len(c.bins) && c.bins[i].Contains(soc) {
		return c.bins[i], nil
	}
	return CurveBin{}, ErrNoMatchingBin
}

// Bins returns a copy of the sorted bins.
func (c *PowerCurve) Bins() []CurveBin {
	out := make([]CurveBin, len(c.bins))
	copy(out, c.bins)
	return out
}

// Gaps lists the parts of [lo, hi) that no bin covers.
func (c *PowerCurve) Gaps(lo, hi float64) []Interval {
	var gaps []Interval
	cursor := lo
	for _, b := range c.bins {
		if cursor >= hi {
			break
		}
		if b.SoCUpper <= cursor {
			continue
		}
		if b.SoCLower > cursor {
			end := b.SoCLower
			if end > hi {
				end = hi
			}
			gaps = append(gaps, Interval{Lower: cursor, Upper: end})
		}
		cursor = b.SoCUpper
	}
	if cursor < hi {
		gaps = append(gaps, Interval{Lower: cursor, Upper: hi})
	}
	return gaps
}
