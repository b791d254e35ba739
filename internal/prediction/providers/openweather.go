package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/aqi-predictor/internal/common"
	"github.com/i474232898/aqi-predictor/internal/prediction"
	"github.com/sony/gobreaker"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

const (
	callWeather   = "weather"
	callPollution = "pollution"
)

// placeholderMarkers flag API keys copied unchanged from a sample config.
var placeholderMarkers = []string{"YOUR", "REPLACE", "CHANGE_ME"}

// OpenWeatherGateway implements prediction.Gateway on top of the OpenWeatherMap
// current weather and air pollution endpoints.
type OpenWeatherGateway struct {
	apiKey           string
	baseURL          string
	httpCfg          HTTPClientConfig
	weatherCircuit   *gobreaker.CircuitBreaker
	pollutionCircuit *gobreaker.CircuitBreaker
	observer         Observer
}

// NewOpenWeatherGateway creates a gateway. An empty baseURL selects the public API.
func NewOpenWeatherGateway(client *http.Client, apiKey, baseURL string, maxRetries int) *OpenWeatherGateway {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	return &OpenWeatherGateway{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      maxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		weatherCircuit:   newBreaker("openweather-weather"),
		pollutionCircuit: newBreaker("openweather-pollution"),
	}
}

// WithObserver sets where upstream latencies are reported.
func (g *OpenWeatherGateway) WithObserver(o Observer) *OpenWeatherGateway {
	g.observer = o
	return g
}

// Ready reports whether a real API key is configured.
func (g *OpenWeatherGateway) Ready() error {
	if g.apiKey == "" || common.HasAny(strings.ToUpper(g.apiKey), placeholderMarkers...) {
		return prediction.ErrConfigurationMissing
	}
	return nil
}

type weatherPayload struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Visibility *float64 `json:"visibility"`
}

type pollutionPayload struct {
	List []struct {
		Components *struct {
			CO   *float64 `json:"co"`
			NO   *float64 `json:"no"`
			NO2  *float64 `json:"no2"`
			O3   *float64 `json:"o3"`
			SO2  *float64 `json:"so2"`
			PM25 *float64 `json:"pm2_5"`
			PM10 *float64 `json:"pm10"`
			NH3  *float64 `json:"nh3"`
		} `json:"components"`
	} `json:"list"`
}

// FetchWeather returns the current weather at lat/lng in metric units.
func (g *OpenWeatherGateway) FetchWeather(ctx context.Context, lat, lng float64) (prediction.WeatherReading, error) {
	values := g.coordinates(lat, lng)
	values.Set("units", "metric")

	var payload weatherPayload
	if err := g.getJSON(ctx, callWeather, g.weatherCircuit, "/weather", values, &payload); err != nil {
		return prediction.WeatherReading{}, err
	}

	return prediction.WeatherReading{
		TempC:       payload.Main.Temp,
		HumidityPct: payload.Main.Humidity,
		WindSpeedMS: payload.Wind.Speed,
		VisibilityM: payload.Visibility,
	}, nil
}

// FetchPollution returns the current pollutant concentrations at lat/lng.
func (g *OpenWeatherGateway) FetchPollution(ctx context.Context, lat, lng float64) (prediction.PollutionReading, error) {
	var payload pollutionPayload
	if err := g.getJSON(ctx, callPollution, g.pollutionCircuit, "/air_pollution", g.coordinates(lat, lng), &payload); err != nil {
		return prediction.PollutionReading{}, err
	}

	// The pollutant map sits under list[0].components.
	if len(payload.List) == 0 {
		return prediction.PollutionReading{}, &prediction.UpstreamError{Call: callPollution, Err: errors.New("response has no list entries")}
	}
	c := payload.List[0].Components
	if c == nil {
		return prediction.PollutionReading{}, &prediction.UpstreamError{Call: callPollution, Err: errors.New("response has no components")}
	}

	return prediction.PollutionReading{
		CO:   c.CO,
		NO:   c.NO,
		NO2:  c.NO2,
		O3:   c.O3,
		SO2:  c.SO2,
		PM25: c.PM25,
		PM10: c.PM10,
		NH3:  c.NH3,
	}, nil
}

func (g *OpenWeatherGateway) coordinates(lat, lng float64) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	values.Set("appid", g.apiKey)
	return values
}

// getJSON performs one GET and decodes the body into out. Every failure is
// returned as *prediction.UpstreamError naming the call.
func (g *OpenWeatherGateway) getJSON(
	ctx context.Context,
	call string,
	cb *gobreaker.CircuitBreaker,
	path string,
	values url.Values,
	out any,
) (err error) {
	start := time.Now()
	defer func() {
		if g.observer != nil {
			g.observer.ObserveUpstream(call, time.Since(start), err)
		}
	}()

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s%s?%s", g.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, g.httpCfg, cb, buildRequest)
	if err != nil {
		return &prediction.UpstreamError{Call: call, StatusCode: statusCode(err), Err: redactURL(err)}
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &prediction.UpstreamError{Call: call, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// redactURL drops the request URL, which carries the API key, from transport errors.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request failed: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
