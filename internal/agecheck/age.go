package agecheck

import "time"

// avgDaysPerMonth approximates a month as 30.44 days. Account ages are
// measured in whole months against a configured minimum, so the average
// is close enough and keeps the comparison simple.
const avgDaysPerMonth = 30.44

// TooYoung reports whether an account created at createdAt is younger
// than minMonths as of now. A minimum of zero disables the check.
func TooYoung(createdAt time.Time, minMonths int, now time.Time) bool {
	if minMonths <= 0 {
		return false
	}
	ageMonths := now.Sub(createdAt).Hours() / (24 * avgDaysPerMonth)
	return ageMonths < float64(minMonths)
}
