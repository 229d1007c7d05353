package utils

import "math"

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// Float64Ptr returns a pointer to v. Convenient for the optional numeric
// fields on transaction rows.
func Float64Ptr(v float64) *float64 {
	return &v
}
