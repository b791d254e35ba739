package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelvins/geocoder"
)

// GoogleGeocoder resolves city names through the Google Geocoding API.
//
// The geocoder package keeps its key in a package variable and performs the
// request without a context or timeout, so each lookup runs in its own
// goroutine and is abandoned once the deadline passes.
type GoogleGeocoder struct {
	apiKey  string
	country string
	timeout time.Duration
}

// NewGoogleGeocoder creates a geocoder. A non-positive timeout defaults to 10 seconds.
func NewGoogleGeocoder(apiKey, country string, timeout time.Duration) *GoogleGeocoder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{apiKey: apiKey, country: country, timeout: timeout}
}

type geocodeResult struct {
	loc geocoder.Location
	err error
}

// Locate returns the coordinates of city within state.
func (g *GoogleGeocoder) Locate(ctx context.Context, city, state string) (float64, float64, error) {
	if g.apiKey == "" {
		return 0, 0, errors.New("geocoder api key is not configured")
	}
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan geocodeResult, 1)
	go func() {
		defer func() {
			// The package indexes the first result even for statuses it does not recognise.
			if r := recover(); r != nil {
				done <- geocodeResult{err: fmt.Errorf("unexpected geocoding response: %v", r)}
			}
		}()
		loc, err := geocoder.Geocoding(geocoder.Address{
			City:    city,
			State:   state,
			Country: g.country,
		})
		done <- geocodeResult{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("geocoding %q: %w", city, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return 0, 0, fmt.Errorf("geocoding %q: %w", city, g.redact(res.err))
		}
		return res.loc.Latitude, res.loc.Longitude, nil
	}
}

// redact removes the API key, which the package embeds in its request URL.
func (g *GoogleGeocoder) redact(err error) error {
	err = redactURL(err)
	if msg := err.Error(); strings.Contains(msg, g.apiKey) {
		return errors.New(strings.ReplaceAll(msg, g.apiKey, "REDACTED"))
	}
	return err
}
