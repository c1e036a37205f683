// Package domain models HRDPS point-forecast data and the BVLOS go/no-go
// assessment derived from it.
//
// # Data Source
//
// Forecast values come from Environment Canada's High Resolution Deterministic
// Prediction System (HRDPS), a 2.5 km continental grid with a 48-hour forecast
// window, published through the GeoMet OGC services at
// https://geo.weather.gc.ca/geomet. The service samples single grid cells
// (nearest-cell, no interpolation) through either a WCS GetCoverage or a WMS
// GetFeatureInfo query; both are hidden behind [ScalarSource].
//
// # Layer Naming
//
// GeoMet layer identifiers follow "HRDPS.CONTINENTAL_<code>":
//
//	TT   air temperature at the surface (°C)
//	WSPD wind speed at 10 m (m/s)
//	GUST wind gust at 10 m (m/s)
//	WD   wind direction (degrees)
//	P0   surface pressure (Pa)
//	PR   accumulated precipitation (kg/m²)
//	HU   specific humidity (kg/kg)
//	TCDC total cloud cover (%)
//	UU   eastward wind component (m/s)
//	VV   northward wind component (m/s)
//
// Layer names drift between GeoMet releases, so the [Catalog] carries ordered
// alternates for the layers that have historically moved (WGST and the
// post-processed HRDPS-WEonG_2.5km_WindGust for gusts, DD/WDIR for direction,
// NT cloud opacity for cloud cover). The resolver tries the primary first and
// falls through the alternates in declaration order.
//
// # Units
//
// Wind layers report m/s; aviation thresholds are knots (1 m/s = 1.94384 kt).
// Accumulated precipitation is mass per area, kg/m², which for liquid water is
// numerically equal to millimetres of depth, so reports treat it as mm.
// Specific humidity is kg of vapour per kg of air, not relative humidity.
//
// # Wind Direction Convention
//
// Directions use the meteorological "wind FROM" convention: degrees clockwise
// from true north naming where the wind originates. When composed from the
// UU/VV vector components both signs are negated inside atan2, which is what
// turns the vector heading into the FROM direction. See [WindFromComponents].
//
// # Coverage
//
// The continental grid spans roughly 40°N–85°N and 145°W–50°W. Coordinates
// outside that envelope are rejected before any upstream call is attempted.
//
// # Risk Classification
//
// A BVLOS assessment evaluates wind speed, gusts, temperature, and
// precipitation against caller-supplied [Thresholds] and reduces the findings
// to GREEN, YELLOW, or RED. Each [Issue] carries an explicit [Severity];
// reduction depends only on severities, never on issue text. Hard-limit
// violations (exceeds, below, heavy) are RED; unavailable inputs and moderate
// precipitation are YELLOW; a clean sheet is GREEN. Wind speed is the one
// input whose absence raises an issue, since a go/no-go call without wind data
// is not worth trusting. Other gaps degrade silently.
package domain
