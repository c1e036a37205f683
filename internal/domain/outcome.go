package domain

// ResolutionStatus tags the result of resolving one variable.
type ResolutionStatus string

const (
	ResolutionSuccess       ResolutionStatus = "success"
	ResolutionNotAvailable  ResolutionStatus = "not_available"
	ResolutionUpstreamError ResolutionStatus = "upstream_error"
	ResolutionTimeout       ResolutionStatus = "timeout"
)

// Outcome is one variable's resolution result. Created per request and
// discarded after the response is built; never persisted or shared.
type Outcome struct {
	Status  ResolutionStatus
	Value   float64
	Units   string
	Layer   string // layer that served the value, or the last layer tried
	Detail  string // error detail for non-success outcomes
	Derived bool   // composed from the UU/VV wind components
}

// OK reports whether the outcome carries a usable value.
func (o Outcome) OK() bool {
	return o.Status == ResolutionSuccess
}

// SuccessOutcome wraps a fetched value.
func SuccessOutcome(value float64, units, layer string) Outcome {
	return Outcome{Status: ResolutionSuccess, Value: value, Units: units, Layer: layer}
}

// NotAvailableOutcome marks a variable no source could serve.
func NotAvailableOutcome(layer, detail string) Outcome {
	return Outcome{Status: ResolutionNotAvailable, Layer: layer, Detail: detail}
}

// UpstreamErrorOutcome marks a transport or upstream-status failure.
func UpstreamErrorOutcome(layer, detail string) Outcome {
	return Outcome{Status: ResolutionUpstreamError, Layer: layer, Detail: detail}
}

// TimeoutOutcome marks an attempt that exceeded the per-call deadline.
func TimeoutOutcome(layer string) Outcome {
	return Outcome{Status: ResolutionTimeout, Layer: layer, Detail: "deadline exceeded"}
}
