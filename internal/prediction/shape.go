package prediction

import "math"

// Shape projects the readings into the rounded values shown on the dashboard.
// Missing fields display as 0 rather than the model defaults.
func Shape(w WeatherReading, p PollutionReading) LiveData {
	return LiveData{
		Weather: LiveWeather{
			Temp:       roundTo(orZero(w.TempC), 0),
			Humidity:   orZero(w.HumidityPct),
			WindSpeed:  roundTo(orZero(w.WindSpeedMS)*3.6, 1),
			Visibility: roundTo(orZero(w.VisibilityM)/1000, 1),
		},
		Pollution: LivePollution{
			CO:   roundTo(orZero(p.CO), 2),
			NO2:  roundTo(orZero(p.NO2), 2),
			O3:   roundTo(orZero(p.O3), 2),
			PM25: roundTo(orZero(p.PM25), 2),
		},
	}
}

func orZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// roundTo rounds half to even at the given number of decimals.
func roundTo(x float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.RoundToEven(x*scale) / scale
}
