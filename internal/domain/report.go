package domain

import "time"

// Fixed metadata describing the upstream model.
const (
	DataSourceName       = "Environment Canada HRDPS"
	AssessmentDataSource = "Environment Canada HRDPS (2.5km resolution)"
	GridResolutionKM     = 2.5
	ForecastWindowHours  = 48
)

// unavailableNote accompanies a report with gaps; layer naming drift is the
// usual culprit.
const unavailableNote = "Some data layers unavailable; layer names may need adjustment"

// displayNames maps semantic variable names to the names listed under
// unavailable_data. Callers see "precipitation" and "humidity" rather than
// the layer-oriented catalog names.
var displayNames = map[string]string{
	VarTemperature:      "temperature",
	VarWindSpeed:        "wind_speed",
	VarWindDirection:    "wind_direction",
	VarWindGust:         "wind_gust",
	VarPrecipAccum:      "precipitation",
	VarCloudCover:       "cloud_cover",
	VarSpecificHumidity: "humidity",
}

// WeatherReport is the point-forecast response body. Value fields are
// pointers so unresolved variables marshal as absent rather than zero.
type WeatherReport struct {
	Location      Coordinate `json:"location"`
	DataSource    string     `json:"data_source"`
	ResolutionKM  float64    `json:"resolution_km"`
	ForecastHours int        `json:"forecast_hours"`
	Timestamp     time.Time  `json:"timestamp"`

	TemperatureC         *float64 `json:"temperature_c,omitempty"`
	WindSpeedMPS         *float64 `json:"wind_speed_mps,omitempty"`
	WindSpeedKts         *float64 `json:"wind_speed_kts,omitempty"`
	WindDirectionDeg     *float64 `json:"wind_direction_deg,omitempty"`
	WindGustMPS          *float64 `json:"wind_gust_mps,omitempty"`
	WindGustKts          *float64 `json:"wind_gust_kts,omitempty"`
	PrecipitationMM      *float64 `json:"precipitation_mm,omitempty"`
	PrecipitationNote    string   `json:"precipitation_note,omitempty"`
	CloudCoverPct        *float64 `json:"cloud_cover_pct,omitempty"`
	SpecificHumidityKgKg *float64 `json:"specific_humidity_kgkg,omitempty"`
	HumidityNote         string   `json:"humidity_note,omitempty"`

	UnavailableData []string `json:"unavailable_data,omitempty"`
	Note            string   `json:"note,omitempty"`
}

// BuildWeatherReport assembles the response from resolved outcomes, applying
// display rounding and recording unavailable variables in report order.
// Partial results are the normal case: a missing variable never fails the
// report, it is just listed under unavailable_data.
func BuildWeatherReport(coord Coordinate, outcomes map[string]Outcome) WeatherReport {
	report := WeatherReport{
		Location:      coord,
		DataSource:    DataSourceName,
		ResolutionKM:  GridResolutionKM,
		ForecastHours: ForecastWindowHours,
		Timestamp:     clock.Now().UTC(),
	}

	var unavailable []string
	miss := func(name string) {
		unavailable = append(unavailable, displayNames[name])
	}

	if temp, ok := outcomes[VarTemperature]; ok && temp.OK() {
		report.TemperatureC = ptr(RoundTo(temp.Value, 1))
	} else {
		miss(VarTemperature)
	}

	if wind, ok := outcomes[VarWindSpeed]; ok && wind.OK() {
		report.WindSpeedMPS = ptr(RoundTo(wind.Value, 1))
		report.WindSpeedKts = ptr(RoundTo(MPSToKnots(wind.Value), 1))
	} else {
		miss(VarWindSpeed)
	}

	if dir, ok := outcomes[VarWindDirection]; ok && dir.OK() {
		report.WindDirectionDeg = ptr(RoundTo(dir.Value, 0))
	} else {
		miss(VarWindDirection)
	}

	if gust, ok := outcomes[VarWindGust]; ok && gust.OK() {
		report.WindGustMPS = ptr(RoundTo(gust.Value, 1))
		report.WindGustKts = ptr(RoundTo(MPSToKnots(gust.Value), 1))
	} else {
		miss(VarWindGust)
	}

	if precip, ok := outcomes[VarPrecipAccum]; ok && precip.OK() {
		report.PrecipitationMM = ptr(RoundTo(precip.Value, 2))
		report.PrecipitationNote = "Accumulated precipitation (kg/m² ≈ mm)"
	} else {
		miss(VarPrecipAccum)
	}

	if cloud, ok := outcomes[VarCloudCover]; ok && cloud.OK() {
		report.CloudCoverPct = ptr(RoundTo(cloud.Value, 0))
	} else {
		miss(VarCloudCover)
	}

	if humidity, ok := outcomes[VarSpecificHumidity]; ok && humidity.OK() {
		report.SpecificHumidityKgKg = ptr(RoundTo(humidity.Value, 6))
		report.HumidityNote = "Specific humidity (kg/kg), not relative humidity"
	} else {
		miss(VarSpecificHumidity)
	}

	if len(unavailable) > 0 {
		report.UnavailableData = unavailable
		report.Note = unavailableNote
	}
	return report
}
