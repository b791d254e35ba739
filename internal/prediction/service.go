package prediction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// Outcome labels recorded for every Predict call.
const (
	OutcomeOK               = "ok"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomeConfigMissing    = "config_missing"
	OutcomeBadRequest       = "bad_request"
	OutcomeUpstreamError    = "upstream_error"
	OutcomeComputationError = "computation_error"
)

// Service runs the live prediction pipeline: gateway, assembler, model.
type Service struct {
	model    Model
	gateway  Gateway
	geocoder Geocoder
	recorder Recorder
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithGeocoder enables coordinate lookup for requests without lat/lng.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithRecorder sets where request metrics go.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates a new Service.
func NewService(model Model, gateway Gateway, opts ...Option) *Service {
	s := &Service{
		model:    model,
		gateway:  gateway,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ModelAvailable reports whether a model was loaded.
func (s *Service) ModelAvailable() bool {
	return s.model != nil && s.model.Available()
}

// Predict fetches live readings for the city and returns the model's AQI estimate.
//
// Local unavailability (model, credential) is checked before any network call.
// Upstream failures are returned as *UpstreamError and never retried here.
func (s *Service) Predict(ctx context.Context, req CityCoordinate) (PredictionResult, error) {
	start := time.Now()
	res, outcome, err := s.predict(ctx, req)
	s.recorder.ObservePrediction(outcome, time.Since(start))
	if err != nil {
		log.Printf("ERROR: prediction for %s failed (%s): %v", req.City, outcome, err)
		return PredictionResult{}, err
	}
	log.Printf("INFO: predicted AQI %d for %s, %s", res.PredictedAQI, req.City, req.State)
	return res, nil
}

func (s *Service) predict(ctx context.Context, req CityCoordinate) (PredictionResult, string, error) {
	if !s.ModelAvailable() {
		return PredictionResult{}, OutcomeModelUnavailable, ErrModelUnavailable
	}
	if err := s.gateway.Ready(); err != nil {
		return PredictionResult{}, OutcomeConfigMissing, err
	}

	lat, lng, err := s.resolve(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCoordinatesMissing) {
			return PredictionResult{}, OutcomeBadRequest, err
		}
		return PredictionResult{}, OutcomeUpstreamError, err
	}

	weather, pollution, err := s.fetch(ctx, lat, lng)
	if err != nil {
		return PredictionResult{}, OutcomeUpstreamError, err
	}

	features := Assemble(weather, pollution)
	log.Printf("DEBUG: features for %s: %v", req.City, features)

	raw, err := s.model.Predict(ctx, features)
	if err != nil {
		return PredictionResult{}, OutcomeComputationError, fmt.Errorf("%w: %v", ErrComputation, err)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return PredictionResult{}, OutcomeComputationError, fmt.Errorf("%w: model returned %v", ErrComputation, raw)
	}

	return PredictionResult{
		PredictedAQI: int(math.Trunc(raw)),
		LiveData:     Shape(weather, pollution),
	}, OutcomeOK, nil
}

func (s *Service) resolve(ctx context.Context, req CityCoordinate) (float64, float64, error) {
	if req.Lat != nil && req.Lng != nil {
		return *req.Lat, *req.Lng, nil
	}
	if s.geocoder == nil {
		return 0, 0, ErrCoordinatesMissing
	}
	lat, lng, err := s.geocoder.Locate(ctx, req.City, req.State)
	if err != nil {
		return 0, 0, &UpstreamError{Call: "geocode", Err: err}
	}
	log.Printf("DEBUG: geocoded %s, %s to %f,%f", req.City, req.State, lat, lng)
	return lat, lng, nil
}

// fetch issues both upstream calls concurrently. When both fail the weather
// error is reported.
func (s *Service) fetch(ctx context.Context, lat, lng float64) (WeatherReading, PollutionReading, error) {
	var (
		wg           sync.WaitGroup
		weather      WeatherReading
		pollution    PollutionReading
		weatherErr   error
		pollutionErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		weather, weatherErr = s.gateway.FetchWeather(ctx, lat, lng)
	}()
	go func() {
		defer wg.Done()
		pollution, pollutionErr = s.gateway.FetchPollution(ctx, lat, lng)
	}()
	wg.Wait()

	if weatherErr != nil {
		return WeatherReading{}, PollutionReading{}, asUpstream("weather", weatherErr)
	}
	if pollutionErr != nil {
		return WeatherReading{}, PollutionReading{}, asUpstream("pollution", pollutionErr)
	}
	return weather, pollution, nil
}

// Probe checks that the upstream answers for the given coordinate and
// records the result.
func (s *Service) Probe(ctx context.Context, lat, lng float64) error {
	if err := s.gateway.Ready(); err != nil {
		s.recorder.SetUpstreamUp(false)
		return err
	}
	if _, err := s.gateway.FetchWeather(ctx, lat, lng); err != nil {
		s.recorder.SetUpstreamUp(false)
		return asUpstream("weather", err)
	}
	s.recorder.SetUpstreamUp(true)
	return nil
}

func asUpstream(call string, err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}
	return &UpstreamError{Call: call, Err: err}
}
