package prediction

// FeatureCount is the number of inputs the model was trained on.
const FeatureCount = 12

// FeatureOrder is the column order the model was trained with. Model files
// declare their own order and are rejected at load time if it differs.
var FeatureOrder = [FeatureCount]string{
	"co", "no", "no2", "o3", "so2", "pm2_5", "pm10", "nh3",
	"temp", "humidity", "wind_speed", "visibility",
}

// FeatureVector is the model input, indexed according to FeatureOrder.
type FeatureVector [FeatureCount]float64

// FeatureDefaults holds the value used for each feature the upstream omitted.
// Values resemble a typical urban reading so that a partial response still
// yields a plausible prediction.
var FeatureDefaults = FeatureVector{
	200,   // co
	1,     // no
	10,    // no2
	50,    // o3
	2,     // so2
	25,    // pm2_5
	50,    // pm10
	5,     // nh3
	25,    // temp
	60,    // humidity
	3,     // wind_speed
	10000, // visibility
}

// Assemble builds the model input from partial readings, substituting
// FeatureDefaults for every missing field.
func Assemble(w WeatherReading, p PollutionReading) FeatureVector {
	fields := [FeatureCount]*float64{
		p.CO, p.NO, p.NO2, p.O3, p.SO2, p.PM25, p.PM10, p.NH3,
		w.TempC, w.HumidityPct, w.WindSpeedMS, w.VisibilityM,
	}

	var v FeatureVector
	for i, f := range fields {
		if f == nil {
			v[i] = FeatureDefaults[i]
			continue
		}
		v[i] = *f
	}
	return v
}
