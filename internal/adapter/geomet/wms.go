package geomet

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/couchcryptid/hrdps-weather-service/internal/domain"
)

// wmsGridSize is odd so one pixel sits exactly at the map center.
const (
	wmsGridSize = 101
	wmsCenter   = wmsGridSize / 2
)

// WMSSource fetches point values with WMS GetFeatureInfo requests. Useful
// where the WCS endpoint is unavailable; values come back without units, so
// reports fall back to the catalog's canonical units.
type WMSSource struct {
	client *Client
}

// NewWMSSource creates a ScalarSource backed by WMS 1.3.0.
func NewWMSSource(client *Client) *WMSSource {
	return &WMSSource{client: client}
}

// FetchScalar queries the pixel at the center of a small map around the
// coordinate.
func (s *WMSSource) FetchScalar(ctx context.Context, layerID string, coord domain.Coordinate) (domain.ScalarPoint, error) {
	u := s.featureInfoURL(layerID, coord)
	s.client.logger.Info("fetching feature info", "layer", layerID, "url", truncate(u, 100))

	body, err := s.client.get(ctx, u, "wms")
	if err != nil {
		return domain.ScalarPoint{}, err
	}

	var fi featureInfoResponse
	if err := json.Unmarshal(body, &fi); err != nil {
		return domain.ScalarPoint{}, fmt.Errorf("decode feature info: %w", err)
	}
	if len(fi.Features) == 0 {
		return domain.ScalarPoint{}, fmt.Errorf("%w: no features at point", domain.ErrNoData)
	}

	value, ok := scalarProperty(fi.Features[0].Properties)
	if !ok {
		return domain.ScalarPoint{}, fmt.Errorf("%w: feature has no numeric value", domain.ErrNoData)
	}
	return domain.ScalarPoint{Value: value}, nil
}

func (s *WMSSource) featureInfoURL(layerID string, coord domain.Coordinate) string {
	params := url.Values{}
	params.Set("SERVICE", "WMS")
	params.Set("VERSION", "1.3.0")
	params.Set("REQUEST", "GetFeatureInfo")
	params.Set("LAYERS", layerID)
	params.Set("QUERY_LAYERS", layerID)
	params.Set("CRS", "EPSG:4326")
	// WMS 1.3.0 with EPSG:4326 puts latitude first in BBOX.
	params.Set("BBOX", fmt.Sprintf("%g,%g,%g,%g",
		coord.Lat-subsetBuffer, coord.Lon-subsetBuffer,
		coord.Lat+subsetBuffer, coord.Lon+subsetBuffer))
	params.Set("WIDTH", strconv.Itoa(wmsGridSize))
	params.Set("HEIGHT", strconv.Itoa(wmsGridSize))
	params.Set("I", strconv.Itoa(wmsCenter))
	params.Set("J", strconv.Itoa(wmsCenter))
	params.Set("INFO_FORMAT", "application/json")
	params.Set("FEATURE_COUNT", "1")
	return s.client.baseURL + "?" + params.Encode()
}

// GeoMet feature info response types.

type featureInfoResponse struct {
	Features []struct {
		Properties map[string]interface{} `json:"properties"`
	} `json:"features"`
}

// scalarProperty pulls the pixel value out of the feature properties. The
// server reports it under "value", sometimes as a quoted number.
func scalarProperty(props map[string]interface{}) (float64, bool) {
	if v, ok := numericValue(props["value"]); ok {
		return v, true
	}
	for _, raw := range props {
		if v, ok := numericValue(raw); ok {
			return v, true
		}
	}
	return 0, false
}

func numericValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil && !math.IsNaN(f)
	default:
		return 0, false
	}
}
