package domain

import "math"

// knotsPerMPS converts HRDPS wind values (m/s) to aviation knots.
const knotsPerMPS = 1.94384

// MPSToKnots converts meters per second to knots.
func MPSToKnots(mps float64) float64 {
	return mps * knotsPerMPS
}

// KnotsToMPS converts knots to meters per second.
func KnotsToMPS(kts float64) float64 {
	return kts / knotsPerMPS
}

// RoundTo rounds v to the given number of decimal places, half away from zero.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
