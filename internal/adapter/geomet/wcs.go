package geomet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/couchcryptid/hrdps-weather-service/internal/domain"
)

// subsetBuffer is the half-width in degrees of the box requested around the
// point. Roughly 5 km at HRDPS latitudes, so the tile always spans at least
// one 2.5 km grid cell.
const subsetBuffer = 0.05

// WCSSource fetches point values with WCS GetCoverage requests.
type WCSSource struct {
	client *Client
}

// NewWCSSource creates a ScalarSource backed by WCS 2.0.1.
func NewWCSSource(client *Client) *WCSSource {
	return &WCSSource{client: client}
}

// FetchScalar requests a small NetCDF tile around the coordinate and
// returns the value of the cell nearest to it.
func (s *WCSSource) FetchScalar(ctx context.Context, layerID string, coord domain.Coordinate) (domain.ScalarPoint, error) {
	u := s.coverageURL(layerID, coord)
	s.client.logger.Info("fetching coverage", "layer", layerID, "url", truncate(u, 100))

	body, err := s.client.get(ctx, u, "wcs")
	if err != nil {
		return domain.ScalarPoint{}, err
	}
	return readCoveragePoint(body, coord)
}

func (s *WCSSource) coverageURL(layerID string, coord domain.Coordinate) string {
	params := url.Values{}
	params.Set("SERVICE", "WCS")
	params.Set("VERSION", "2.0.1")
	params.Set("REQUEST", "GetCoverage")
	params.Set("COVERAGEID", layerID)
	params.Set("FORMAT", "image/netcdf")
	params.Set("SUBSETTINGCRS", "EPSG:4326")
	params.Set("OUTPUTCRS", "EPSG:4326")
	params.Add("SUBSET", fmt.Sprintf("x(%g,%g)", coord.Lon-subsetBuffer, coord.Lon+subsetBuffer))
	params.Add("SUBSET", fmt.Sprintf("y(%g,%g)", coord.Lat-subsetBuffer, coord.Lat+subsetBuffer))
	return s.client.baseURL + "?" + params.Encode()
}

// readCoveragePoint parses a NetCDF tile and extracts the value nearest the
// coordinate. The library reads from a file, so the tile goes through a
// temp file that is removed before returning.
func readCoveragePoint(body []byte, coord domain.Coordinate) (domain.ScalarPoint, error) {
	tmp, err := os.CreateTemp("", "geomet-*.nc")
	if err != nil {
		return domain.ScalarPoint{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return domain.ScalarPoint{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.ScalarPoint{}, fmt.Errorf("close temp file: %w", err)
	}

	nc, err := netcdf.Open(tmpPath)
	if err != nil {
		return domain.ScalarPoint{}, fmt.Errorf("open coverage: %w", err)
	}
	defer nc.Close()

	name, err := dataVariable(nc)
	if err != nil {
		return domain.ScalarPoint{}, err
	}
	v, err := nc.GetVariable(name)
	if err != nil {
		return domain.ScalarPoint{}, fmt.Errorf("read variable %s: %w", name, err)
	}

	grid, err := gridValues(v.Values)
	if err != nil {
		return domain.ScalarPoint{}, fmt.Errorf("variable %s: %w", name, err)
	}

	value, err := pointValue(nc, grid, coord)
	if err != nil {
		return domain.ScalarPoint{}, err
	}
	if math.IsNaN(value) {
		return domain.ScalarPoint{}, fmt.Errorf("%w: fill value at nearest cell", domain.ErrNoData)
	}

	return domain.ScalarPoint{Value: value, Units: unitsAttr(v)}, nil
}

// coordinateVars are auxiliary variables never treated as the data band.
var coordinateVars = map[string]bool{
	"lat": true, "latitude": true, "lon": true, "longitude": true,
	"x": true, "y": true, "time": true, "crs": true, "spatial_ref": true,
}

// dataVariable picks the coverage band, usually named Band1.
func dataVariable(nc api.Group) (string, error) {
	for _, name := range nc.ListVariables() {
		if !coordinateVars[name] {
			return name, nil
		}
	}
	return "", errors.New("coverage has no data variable")
}

func unitsAttr(v *api.Variable) string {
	if v.Attributes == nil {
		return "unknown"
	}
	raw, has := v.Attributes.Get("units")
	if !has {
		return "unknown"
	}
	if s, ok := raw.(string); ok && s != "" {
		return s
	}
	return "unknown"
}

// pointValue selects the grid cell for the coordinate: nearest along the
// lat/lon axes when the tile carries them, nearest along y/x otherwise,
// falling back to the center cell when axes are missing or inconsistent.
func pointValue(nc api.Group, grid [][]float64, coord domain.Coordinate) (float64, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return 0, fmt.Errorf("%w: empty coverage tile", domain.ErrNoData)
	}

	for _, axes := range [][2]string{{"lat", "lon"}, {"y", "x"}} {
		rows, cols, ok := axisVectors(nc, axes[0], axes[1])
		if !ok {
			continue
		}
		v, ok := cellAt(grid, nearestIndex(rows, coord.Lat), nearestIndex(cols, coord.Lon))
		if ok {
			return v, nil
		}
	}

	return grid[len(grid)/2][len(grid[0])/2], nil
}

func axisVectors(nc api.Group, rowName, colName string) ([]float64, []float64, bool) {
	rows, err := vectorValues(nc, rowName)
	if err != nil || len(rows) == 0 {
		return nil, nil, false
	}
	cols, err := vectorValues(nc, colName)
	if err != nil || len(cols) == 0 {
		return nil, nil, false
	}
	return rows, cols, true
}

func vectorValues(nc api.Group, name string) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, err
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, err
	}
	switch vv := vals.(type) {
	case []float64:
		return vv, nil
	case []float32:
		return toFloat64s(vv), nil
	default:
		return nil, fmt.Errorf("unsupported axis type %T", vals)
	}
}

// nearestIndex finds the index whose axis value is closest to target.
// Works for ascending and descending axes alike.
func nearestIndex(axis []float64, target float64) int {
	best := 0
	bestDist := math.Abs(axis[0] - target)
	for i, v := range axis[1:] {
		if d := math.Abs(v - target); d < bestDist {
			best = i + 1
			bestDist = d
		}
	}
	return best
}

func cellAt(grid [][]float64, row, col int) (float64, bool) {
	if row < 0 || row >= len(grid) {
		return 0, false
	}
	r := grid[row]
	if col < 0 || col >= len(r) {
		return 0, false
	}
	return r[col], true
}

// gridValues normalizes the variable payload to a 2-D float64 grid. Tiles
// arrive as 1-D, 2-D, or 3-D arrays depending on the coverage; a leading
// time dimension is stripped by taking its first slice.
func gridValues(values interface{}) ([][]float64, error) {
	switch vv := values.(type) {
	case []float64:
		return [][]float64{vv}, nil
	case []float32:
		return [][]float64{toFloat64s(vv)}, nil
	case []int16:
		return [][]float64{toFloat64s(vv)}, nil
	case []int32:
		return [][]float64{toFloat64s(vv)}, nil
	case [][]float64:
		return vv, nil
	case [][]float32:
		return toGrid(vv), nil
	case [][]int16:
		return toGrid(vv), nil
	case [][]int32:
		return toGrid(vv), nil
	case [][][]float64:
		if len(vv) == 0 {
			return nil, fmt.Errorf("%w: empty coverage tile", domain.ErrNoData)
		}
		return vv[0], nil
	case [][][]float32:
		if len(vv) == 0 {
			return nil, fmt.Errorf("%w: empty coverage tile", domain.ErrNoData)
		}
		return toGrid(vv[0]), nil
	case [][][]int16:
		if len(vv) == 0 {
			return nil, fmt.Errorf("%w: empty coverage tile", domain.ErrNoData)
		}
		return toGrid(vv[0]), nil
	default:
		return nil, fmt.Errorf("unsupported coverage payload %T", values)
	}
}

func toFloat64s[T int16 | int32 | float32 | float64](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func toGrid[T int16 | int32 | float32 | float64](in [][]T) [][]float64 {
	out := make([][]float64, len(in))
	for i, row := range in {
		out[i] = toFloat64s(row)
	}
	return out
}
