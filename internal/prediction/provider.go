package prediction

import (
	"context"
	"time"
)

// Gateway abstracts the third-party weather/pollution API.
type Gateway interface {
	// Ready reports ErrConfigurationMissing when no usable credential is set.
	Ready() error
	FetchWeather(ctx context.Context, lat, lng float64) (WeatherReading, error)
	FetchPollution(ctx context.Context, lat, lng float64) (PollutionReading, error)
}

// Model is a loaded regression model. Implementations are read-only and safe
// for concurrent use.
type Model interface {
	// Available is false when the model failed to load at startup.
	Available() bool
	Predict(ctx context.Context, v FeatureVector) (float64, error)
}

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, city, state string) (lat, lng float64, err error)
}

// Recorder receives per-request measurements.
type Recorder interface {
	ObservePrediction(outcome string, d time.Duration)
	SetUpstreamUp(up bool)
}

type noopRecorder struct{}

func (noopRecorder) ObservePrediction(string, time.Duration) {}
func (noopRecorder) SetUpstreamUp(bool)                      {}
