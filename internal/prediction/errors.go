package prediction

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable is returned when no model was loaded at startup.
	ErrModelUnavailable = errors.New("ML model is not available")
	// ErrConfigurationMissing is returned when the upstream API key is absent or a placeholder.
	ErrConfigurationMissing = errors.New("OpenWeatherMap API key is not configured on the server")
	// ErrCoordinatesMissing is returned when lat/lng are absent and cannot be geocoded.
	ErrCoordinatesMissing = errors.New("lat and lng are required")
	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("upstream request failed")
	// ErrComputation covers unexpected failures while predicting.
	ErrComputation = errors.New("prediction failed")
)

// UpstreamError describes a failed call to a third-party API.
type UpstreamError struct {
	Call       string // "weather", "pollution" or "geocode"
	StatusCode int    // 0 for transport failures
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("error fetching live %s data: status %d: %v", e.Call, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("error fetching live %s data: %v", e.Call, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUpstream) match any UpstreamError.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
