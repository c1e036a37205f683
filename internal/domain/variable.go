package domain

// Semantic variable names understood by the resolver.
const (
	VarTemperature      = "temperature"
	VarWindSpeed        = "wind_speed"
	VarWindGust         = "wind_gust"
	VarWindDirection    = "wind_direction"
	VarPressure         = "pressure"
	VarPrecipAccum      = "precip_accum"
	VarSpecificHumidity = "specific_humidity"
	VarCloudCover       = "cloud_cover"
	VarWindU            = "wind_u"
	VarWindV            = "wind_v"
)

// Variable maps a semantic name to its upstream HRDPS layers. Alternates are
// tried in declaration order after the primary fails.
type Variable struct {
	Name       string
	Primary    string
	Alternates []string
	Units      string // canonical units, used when the upstream reports none
}

// Catalog is the immutable semantic-name to layer mapping. Built once at
// startup, never mutated, safe for unsynchronized concurrent reads.
type Catalog struct {
	order []string
	vars  map[string]Variable
}

// NewCatalog builds a catalog preserving declaration order.
func NewCatalog(vars ...Variable) *Catalog {
	c := &Catalog{vars: make(map[string]Variable, len(vars))}
	for _, v := range vars {
		if _, exists := c.vars[v.Name]; !exists {
			c.order = append(c.order, v.Name)
		}
		c.vars[v.Name] = v
	}
	return c
}

// DefaultCatalog returns the HRDPS layer mapping verified against the live
// GeoMet WCS GetCapabilities. Alternates cover layer names that have moved
// between GeoMet releases.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Variable{Name: VarTemperature, Primary: "HRDPS.CONTINENTAL_TT", Units: "°C"},
		Variable{Name: VarWindSpeed, Primary: "HRDPS.CONTINENTAL_WSPD", Units: "m/s"},
		Variable{Name: VarWindGust, Primary: "HRDPS.CONTINENTAL_GUST", Units: "m/s",
			Alternates: []string{"HRDPS.CONTINENTAL_WGST", "HRDPS-WEonG_2.5km_WindGust"}},
		Variable{Name: VarWindDirection, Primary: "HRDPS.CONTINENTAL_WD", Units: "degrees",
			Alternates: []string{"HRDPS.CONTINENTAL_DD", "HRDPS.CONTINENTAL_WDIR"}},
		Variable{Name: VarPressure, Primary: "HRDPS.CONTINENTAL_P0", Units: "Pa"},
		Variable{Name: VarPrecipAccum, Primary: "HRDPS.CONTINENTAL_PR", Units: "kg/m²"},
		Variable{Name: VarSpecificHumidity, Primary: "HRDPS.CONTINENTAL_HU", Units: "kg/kg"},
		Variable{Name: VarCloudCover, Primary: "HRDPS.CONTINENTAL_TCDC", Units: "%",
			Alternates: []string{"HRDPS.CONTINENTAL_NT"}},
		Variable{Name: VarWindU, Primary: "HRDPS.CONTINENTAL_UU", Units: "m/s"},
		Variable{Name: VarWindV, Primary: "HRDPS.CONTINENTAL_VV", Units: "m/s"},
	)
}

// Lookup returns the variable for a semantic name.
func (c *Catalog) Lookup(name string) (Variable, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Names returns the semantic names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// Primaries returns the name to primary-layer mapping for the layer listing.
func (c *Catalog) Primaries() map[string]string {
	out := make(map[string]string, len(c.order))
	for name, v := range c.vars {
		out[name] = v.Primary
	}
	return out
}

// Alternates returns the name to alternate-layers mapping for the layer
// listing. Variables without alternates are omitted.
func (c *Catalog) Alternates() map[string][]string {
	out := make(map[string][]string)
	for name, v := range c.vars {
		if len(v.Alternates) > 0 {
			alts := make([]string, len(v.Alternates))
			copy(alts, v.Alternates)
			out[name] = alts
		}
	}
	return out
}

// ReportVariables lists what a weather report fetches, in display order.
func ReportVariables() []string {
	return []string{
		VarTemperature, VarWindSpeed, VarWindDirection, VarWindGust,
		VarPrecipAccum, VarCloudCover, VarSpecificHumidity,
	}
}

// AssessmentVariables lists what a BVLOS assessment evaluates.
func AssessmentVariables() []string {
	return []string{VarWindSpeed, VarWindGust, VarTemperature, VarPrecipAccum}
}
