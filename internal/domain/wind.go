package domain

import "math"

// WindFromComponents derives horizontal wind speed and direction from the
// eastward (u) and northward (v) components.
//
// Direction follows the meteorological "wind FROM" convention: degrees
// clockwise from true north naming where the wind originates, hence both
// components are negated inside atan2 to flip the vector heading. The result
// is normalized to [0, 360). Example: u=-5, v=0 (wind blowing westward out of
// the east) gives speed 5 m/s, direction 90°.
func WindFromComponents(u, v float64) (speed, direction float64) {
	speed = math.Sqrt(u*u + v*v)
	if speed == 0 {
		// Calm air has no origin, and Atan2(-0, -0) would report -180.
		return 0, 0
	}
	direction = math.Mod(math.Atan2(-u, -v)*180/math.Pi+360, 360)
	return speed, direction
}
