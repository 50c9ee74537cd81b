package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe helpers for template lengths. Layout works in points.

// Unit represents the original unit of a length value as written in a template.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers, read as points
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToPT converts this length to points. Unit-less values are already points.
func (l Length) ToPT() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value * MmToPt
	case UnitCM:
		return l.Value * 10 * MmToPt
	case UnitIN:
		return l.Value * 72
	default:
		return l.Value
	}
}

// ToMM converts this length to millimeters.
func (l Length) ToMM() float64 {
	return l.ToPT() * PtToMm
}

// ParseLength parses a template length such as "12", "12pt", "18mm" or "1in".
// The second result is false when value is not a number.
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			v = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// parsePoints is ParseLength followed by ToPT; invalid input yields 0.
func parsePoints(value string) float64 {
	l, ok := ParseLength(value)
	if !ok {
		return 0
	}
	return l.ToPT()
}

// pagePresets are page sizes in points (portrait).
var pagePresets = map[string][2]float64{
	"A4":     {595, 842},
	"A5":     {420, 595},
	"LETTER": {612, 792},
}
