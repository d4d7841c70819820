package pricing

import (
	"math"
	"time"
)

// AgeAt computes a child's fractional age at the reference date with one-decimal
// precision: whole elapsed years plus the remaining month difference divided by
// twelve. The year count drops by one when the reference day-of-month precedes
// the birth day-of-month in the same relative month.
func AgeAt(birth, ref time.Time) float64 {
	years := ref.Year() - birth.Year()
	months := int(ref.Month()) - int(birth.Month())
	if ref.Day() < birth.Day() {
		months--
	}
	if months < 0 {
		years--
		months += 12
	}
	if years < 0 {
		return 0
	}
	return math.Round((float64(years)+float64(months)/12)*10) / 10
}

// Eligible reports whether a child of the given age may join a session with the
// provided age bounds. The upper bound is inclusive up to the next whole year:
// with age_max 8, 8.9 and 9.0 qualify and 9.1 does not.
func Eligible(age float64, ageMin, ageMax int32) bool {
	return age >= float64(ageMin) && age <= float64(ageMax)+1
}
