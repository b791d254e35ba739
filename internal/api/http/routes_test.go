package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/aqi-predictor/internal/prediction"
	"github.com/i474232898/aqi-predictor/internal/store"
)

const testCSV = `City,State,lat,lng,AQI,AQI_Category,PM2.5,PM10,NO2,SO2,CO
Delhi,Delhi,28.61,77.21,300,Poor,150,250,40,10,1.5
Mumbai,Maharashtra,19.07,72.87,100,Moderate,50,90,20,8,0.8
Pune,Maharashtra,18.52,73.85,150,Moderate,75,120,25,9,1.0
`

type stubModel struct {
	available bool
	out       float64
}

func (m stubModel) Available() bool { return m.available }

func (m stubModel) Predict(context.Context, prediction.FeatureVector) (float64, error) {
	return m.out, nil
}

type stubGateway struct {
	readyErr   error
	weatherErr error
	calls      atomic.Int32
}

func (g *stubGateway) Ready() error { return g.readyErr }

func (g *stubGateway) FetchWeather(context.Context, float64, float64) (prediction.WeatherReading, error) {
	g.calls.Add(1)
	t, h := 30.2, 55.0
	return prediction.WeatherReading{TempC: &t, HumidityPct: &h}, g.weatherErr
}

func (g *stubGateway) FetchPollution(context.Context, float64, float64) (prediction.PollutionReading, error) {
	g.calls.Add(1)
	co := 210.1
	return prediction.PollutionReading{CO: &co}, nil
}

func newTestApp(t *testing.T, dataset *store.Dataset, model prediction.Model, gw prediction.Gateway) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Deps{
		Dataset: dataset,
		Service: prediction.NewService(model, gw),
	})
	return app
}

func loadedDataset(t *testing.T) *store.Dataset {
	t.Helper()
	d, err := store.Parse(strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request, out any) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
	}
	return resp.StatusCode
}

func predictRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/predict-city", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestIndexServesDashboard(t *testing.T) {
	app := newTestApp(t, nil, stubModel{}, &stubGateway{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html, got %q", ct)
	}
}

func TestHealthReportsLoadState(t *testing.T) {
	app := newTestApp(t, loadedDataset(t), stubModel{available: false}, &stubGateway{})

	var body map[string]any
	code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/health", nil), &body)
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if body["model_loaded"] != false || body["dataset_loaded"] != true {
		t.Fatalf("unexpected health body: %v", body)
	}
}

// TestWithoutDataset verifies that dataset endpoints degrade instead of failing
// the whole service.
func TestWithoutDataset(t *testing.T) {
	app := newTestApp(t, store.Unavailable(errors.New("missing")), stubModel{}, &stubGateway{})

	var errBody map[string]any
	if code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/get-cities", nil), &errBody); code != http.StatusNotFound {
		t.Fatalf("get-cities: expected status %d, got %d", http.StatusNotFound, code)
	}
	if errBody["error"] != true || errBody["message"] == "" {
		t.Fatalf("unexpected error body: %v", errBody)
	}

	var stats map[string]any
	if code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/dataset-stats", nil), &stats); code != http.StatusOK {
		t.Fatalf("dataset-stats: expected status %d, got %d", http.StatusOK, code)
	}
	for _, k := range []string{"total_records", "cities_count", "states_count", "most_common_aqi"} {
		if stats[k] != "N/A" {
			t.Fatalf("expected %s to be N/A, got %v", k, stats[k])
		}
	}

	if code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/visualizations", nil), nil); code != http.StatusNotFound {
		t.Fatalf("visualizations: expected status %d, got %d", http.StatusNotFound, code)
	}
}

func TestDatasetEndpoints(t *testing.T) {
	app := newTestApp(t, loadedDataset(t), stubModel{}, &stubGateway{})

	var cities []store.CityRecord
	if code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/get-cities", nil), &cities); code != http.StatusOK {
		t.Fatalf("get-cities: expected status %d, got %d", http.StatusOK, code)
	}
	if len(cities) != 3 || cities[0].City != "Delhi" {
		t.Fatalf("unexpected cities: %+v", cities)
	}

	var stats map[string]any
	doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/dataset-stats", nil), &stats)
	if stats["total_records"] != float64(3) || stats["states_count"] != float64(2) || stats["most_common_aqi"] != "Moderate" {
		t.Fatalf("unexpected stats: %v", stats)
	}

	var charts []map[string]any
	if code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/visualizations", nil), &charts); code != http.StatusOK {
		t.Fatalf("visualizations: expected status %d, got %d", http.StatusOK, code)
	}
	if len(charts) != 2 {
		t.Fatalf("expected 2 charts, got %d", len(charts))
	}
}

func TestGetCitiesMissingColumns(t *testing.T) {
	d, _ := store.Parse(strings.NewReader("City,State\nDelhi,Delhi\n"))
	app := newTestApp(t, d, stubModel{}, &stubGateway{})

	if code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/get-cities", nil), nil); code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, code)
	}
}

func TestPredictCity(t *testing.T) {
	app := newTestApp(t, nil, stubModel{available: true, out: 157.9}, &stubGateway{})

	var res prediction.PredictionResult
	code := doJSON(t, app, predictRequest(`{"city":"Delhi","state":"Delhi","lat":28.61,"lng":77.21}`), &res)
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if res.PredictedAQI != 157 {
		t.Fatalf("expected 157, got %d", res.PredictedAQI)
	}
	if res.LiveData.Weather.Temp != 30 || res.LiveData.Pollution.CO != 210.1 {
		t.Fatalf("unexpected live data: %+v", res.LiveData)
	}
}

func TestPredictCityErrors(t *testing.T) {
	cases := []struct {
		name  string
		model stubModel
		gw    *stubGateway
		body  string
		code  int
		calls int
	}{
		{
			name:  "model unavailable",
			model: stubModel{available: false},
			gw:    &stubGateway{},
			body:  `{"city":"Delhi","lat":1,"lng":2}`,
			code:  http.StatusServiceUnavailable,
		},
		{
			name:  "missing api key",
			model: stubModel{available: true},
			gw:    &stubGateway{readyErr: prediction.ErrConfigurationMissing},
			body:  `{"city":"Delhi","lat":1,"lng":2}`,
			code:  http.StatusInternalServerError,
		},
		{
			name:  "invalid body",
			model: stubModel{available: true},
			gw:    &stubGateway{},
			body:  `{"city":`,
			code:  http.StatusBadRequest,
		},
		{
			name:  "missing city",
			model: stubModel{available: true},
			gw:    &stubGateway{},
			body:  `{"lat":1,"lng":2}`,
			code:  http.StatusBadRequest,
		},
		{
			name:  "missing coordinates",
			model: stubModel{available: true},
			gw:    &stubGateway{},
			body:  `{"city":"Delhi"}`,
			code:  http.StatusBadRequest,
		},
		{
			name:  "upstream failure",
			model: stubModel{available: true},
			gw:    &stubGateway{weatherErr: &prediction.UpstreamError{Call: "weather", StatusCode: 401, Err: errors.New("unauthorized")}},
			body:  `{"city":"Delhi","lat":1,"lng":2}`,
			code:  http.StatusInternalServerError,
			calls: 2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, nil, tc.model, tc.gw)

			var body map[string]any
			code := doJSON(t, app, predictRequest(tc.body), &body)
			if code != tc.code {
				t.Fatalf("expected status %d, got %d (%v)", tc.code, code, body)
			}
			if body["error"] != true {
				t.Fatalf("expected error body, got %v", body)
			}
			if got := int(tc.gw.calls.Load()); got != tc.calls {
				t.Fatalf("expected %d upstream calls, got %d", tc.calls, got)
			}
		})
	}
}

func TestStatsForEmptyDataset(t *testing.T) {
	d, err := store.Parse(strings.NewReader("City,State,AQI_Category\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	app := newTestApp(t, d, stubModel{}, &stubGateway{})

	var stats map[string]any
	if code := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/dataset-stats", nil), &stats); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	for _, k := range []string{"total_records", "cities_count", "states_count", "most_common_aqi"} {
		if stats[k] != "N/A" {
			t.Fatalf("expected %s to be N/A, got %v", k, stats[k])
		}
	}
}

func TestDashboardRendersServerMessagesAsText(t *testing.T) {
	page := string(indexHTML)
	if strings.Contains(page, "${e.message}") || strings.Contains(page, "${plot.title}") {
		t.Fatalf("server-supplied text must be assigned with textContent, not interpolated into HTML")
	}
}
