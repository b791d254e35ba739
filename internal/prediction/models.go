package prediction

// CityCoordinate identifies the place a prediction is requested for.
// Lat/Lng may be nil when the caller only knows the city name.
type CityCoordinate struct {
	City  string   `json:"city" validate:"required"`
	State string   `json:"state"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
}

// WeatherReading is the current weather at a coordinate as reported upstream.
// A nil field means the provider omitted it.
type WeatherReading struct {
	TempC       *float64
	HumidityPct *float64
	WindSpeedMS *float64
	VisibilityM *float64
}

// PollutionReading holds pollutant concentrations in µg/m³.
// A nil field means the provider omitted it.
type PollutionReading struct {
	CO   *float64
	NO   *float64
	NO2  *float64
	O3   *float64
	SO2  *float64
	PM25 *float64
	PM10 *float64
	NH3  *float64
}

// PredictionResult is returned to the dashboard.
type PredictionResult struct {
	PredictedAQI int      `json:"predicted_aqi"`
	LiveData     LiveData `json:"live_data"`
}

// LiveData is a display-rounded subset of the readings used for the prediction.
type LiveData struct {
	Weather   LiveWeather   `json:"weather"`
	Pollution LivePollution `json:"pollution"`
}

type LiveWeather struct {
	Temp       float64 `json:"temp"`
	Humidity   float64 `json:"humidity"`
	WindSpeed  float64 `json:"wind_speed"` // km/h
	Visibility float64 `json:"visibility"` // km
}

type LivePollution struct {
	CO   float64 `json:"co"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	PM25 float64 `json:"pm2_5"`
}
