package domain

import (
	"fmt"
	"time"
)

// Severity tags an assessment issue for status reduction. It is an explicit
// field rather than a keyword embedded in the issue text, so reduction never
// depends on display strings.
type Severity string

const (
	SeverityExceeds     Severity = "exceeds"     // measured value above a hard limit
	SeverityBelow       Severity = "below"       // measured value under a hard minimum
	SeverityHeavy       Severity = "heavy"       // precipitation above the hard limit
	SeverityModerate    Severity = "moderate"    // precipitation worth reviewing
	SeverityUnavailable Severity = "unavailable" // required input could not be resolved
)

// FlightStatus is the ordinal go/no-go verdict, GREEN < YELLOW < RED.
type FlightStatus string

const (
	StatusGreen  FlightStatus = "GREEN"
	StatusYellow FlightStatus = "YELLOW"
	StatusRed    FlightStatus = "RED"
)

// Issue is one assessment finding. Text is display-only.
type Issue struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// Thresholds are the flight limits one assessment is evaluated against.
// Immutable for the duration of a request.
type Thresholds struct {
	MaxWindKts  float64 `json:"max_wind_kts"`
	MaxGustKts  float64 `json:"max_gust_kts"`
	MaxPrecipMM float64 `json:"max_precip_mm"`
	MinTempC    float64 `json:"min_temp_c"`
	MaxTempC    float64 `json:"max_temp_c"`
}

// DefaultThresholds returns the standard BVLOS operating limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxWindKts:  20,
		MaxGustKts:  25,
		MaxPrecipMM: 5,
		MinTempC:    -25,
		MaxTempC:    40,
	}
}

// moderatePrecipFloorMM is the fixed floor above which precipitation is worth
// flagging even when it stays under the caller's hard limit.
const moderatePrecipFloorMM = 1.0

// Conditions holds the evaluated values, rounded for display. WindGustKts
// marshals as an explicit null when the gust layers are unavailable; the
// other fields are omitted when unresolved.
type Conditions struct {
	WindSpeedKts    *float64 `json:"wind_speed_kts,omitempty"`
	WindGustKts     *float64 `json:"wind_gust_kts"`
	TemperatureC    *float64 `json:"temperature_c,omitempty"`
	PrecipitationMM *float64 `json:"precipitation_mm,omitempty"`
}

// AssessmentResult is the classifier output: what was evaluated and the
// reduced verdict.
type AssessmentResult struct {
	Conditions     Conditions
	Issues         []Issue
	Status         FlightStatus
	Recommendation string
}

// Classify evaluates resolved variables against thresholds and reduces the
// findings to a go/no-go verdict. Pure function: no I/O, no clock, identical
// inputs produce identical results. Comparisons use raw values; Conditions
// carries the rounded forms.
func Classify(outcomes map[string]Outcome, th Thresholds) AssessmentResult {
	var conditions Conditions
	issues := []Issue{}

	if wind, ok := outcomes[VarWindSpeed]; ok && wind.OK() {
		kts := MPSToKnots(wind.Value)
		conditions.WindSpeedKts = ptr(RoundTo(kts, 1))
		if kts > th.MaxWindKts {
			issues = append(issues, Issue{
				Severity: SeverityExceeds,
				Text:     fmt.Sprintf("Wind %.1f kts exceeds %g kts limit", kts, th.MaxWindKts),
			})
		}
	} else {
		issues = append(issues, Issue{
			Severity: SeverityUnavailable,
			Text:     "Wind speed data unavailable",
		})
	}

	if gust, ok := outcomes[VarWindGust]; ok && gust.OK() {
		kts := MPSToKnots(gust.Value)
		conditions.WindGustKts = ptr(RoundTo(kts, 1))
		if kts > th.MaxGustKts {
			issues = append(issues, Issue{
				Severity: SeverityExceeds,
				Text:     fmt.Sprintf("Gusts %.1f kts exceeds %g kts limit", kts, th.MaxGustKts),
			})
		}
	}

	if temp, ok := outcomes[VarTemperature]; ok && temp.OK() {
		conditions.TemperatureC = ptr(RoundTo(temp.Value, 1))
		switch {
		case temp.Value < th.MinTempC:
			issues = append(issues, Issue{
				Severity: SeverityBelow,
				Text:     fmt.Sprintf("Temperature %.1f°C below %g°C minimum", temp.Value, th.MinTempC),
			})
		case temp.Value > th.MaxTempC:
			issues = append(issues, Issue{
				Severity: SeverityExceeds,
				Text:     fmt.Sprintf("Temperature %.1f°C exceeds %g°C maximum", temp.Value, th.MaxTempC),
			})
		}
	}

	if precip, ok := outcomes[VarPrecipAccum]; ok && precip.OK() {
		mm := precip.Value // accumulated kg/m², numerically mm
		conditions.PrecipitationMM = ptr(RoundTo(mm, 2))
		switch {
		case mm > th.MaxPrecipMM:
			issues = append(issues, Issue{
				Severity: SeverityHeavy,
				Text:     fmt.Sprintf("Heavy precipitation: %.1f mm", mm),
			})
		case mm > moderatePrecipFloorMM:
			issues = append(issues, Issue{
				Severity: SeverityModerate,
				Text:     fmt.Sprintf("Moderate precipitation: %.1f mm", mm),
			})
		}
	}

	status, recommendation := reduceStatus(issues)
	return AssessmentResult{
		Conditions:     conditions,
		Issues:         issues,
		Status:         status,
		Recommendation: recommendation,
	}
}

// reduceStatus folds the issue list to a verdict, evaluated top-down with
// first match winning: hard-limit severities are RED, caution severities are
// YELLOW, an empty list is GREEN, and any remaining issue mix is a YELLOW
// minor concern.
func reduceStatus(issues []Issue) (FlightStatus, string) {
	var hasBlocking, hasCaution bool
	onlyUnavailable := len(issues) > 0
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityExceeds, SeverityBelow, SeverityHeavy:
			hasBlocking = true
		case SeverityUnavailable, SeverityModerate:
			hasCaution = true
		}
		if issue.Severity != SeverityUnavailable {
			onlyUnavailable = false
		}
	}

	switch {
	case hasBlocking:
		return StatusRed, "NO-GO: Conditions exceed safe limits"
	case hasCaution && onlyUnavailable:
		return StatusYellow, "CAUTION: Some data unavailable"
	case hasCaution:
		return StatusYellow, "CAUTION: Review conditions carefully"
	case len(issues) == 0:
		return StatusGreen, "GO: Conditions within limits"
	default:
		return StatusYellow, "CAUTION: Minor concerns noted"
	}
}

// Assessment is the BVLOS response envelope and the audit record published to
// Kafka.
type Assessment struct {
	Location       Coordinate   `json:"location"`
	Thresholds     Thresholds   `json:"thresholds"`
	Conditions     Conditions   `json:"conditions"`
	Issues         []Issue      `json:"issues"`
	Status         FlightStatus `json:"status"`
	Recommendation string       `json:"recommendation"`
	Timestamp      time.Time    `json:"timestamp"`
	DataSource     string       `json:"data_source"`
}

// NewAssessment wraps a classifier result into the response envelope,
// stamping it with the package clock.
func NewAssessment(coord Coordinate, th Thresholds, result AssessmentResult) Assessment {
	return Assessment{
		Location:       coord,
		Thresholds:     th,
		Conditions:     result.Conditions,
		Issues:         result.Issues,
		Status:         result.Status,
		Recommendation: result.Recommendation,
		Timestamp:      clock.Now().UTC(),
		DataSource:     AssessmentDataSource,
	}
}

func ptr(v float64) *float64 { return &v }
