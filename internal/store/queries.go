package store

import (
	"math"
	"sort"
)

// CorrelationColumns are the pollutant columns compared in the correlation matrix.
var CorrelationColumns = []string{"AQI", "PM2.5", "PM10", "NO2", "SO2", "CO"}

// CityRecord is one selectable city. Lat/Lng are nil when the cell is not numeric.
type CityRecord struct {
	City  string   `json:"city"`
	State string   `json:"state"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
}

// Stats summarises the dataset for the dashboard header.
type Stats struct {
	TotalRecords  int
	CitiesCount   int
	StatesCount   int
	MostCommonAQI string // "" when AQI_Category is absent or empty
}

// StateAQI is the mean AQI of one state.
type StateAQI struct {
	State   string  `json:"state"`
	MeanAQI float64 `json:"mean_aqi"`
}

// Correlation is a symmetric matrix over Columns. A nil cell is undefined.
type Correlation struct {
	Columns []string
	Values  [][]*float64
}

// ListCities returns one record per distinct city name, keeping the first
// occurrence in file order. Rows without a city name are skipped.
func (d *Dataset) ListCities() ([]CityRecord, error) {
	if err := d.require(ColCity, ColState, ColLat, ColLng); err != nil {
		return nil, err
	}
	city, state, lat, lng := d.columns[ColCity], d.columns[ColState], d.columns[ColLat], d.columns[ColLng]

	seen := make(map[string]struct{})
	out := make([]CityRecord, 0)
	for _, row := range d.rows {
		name := d.cell(row, city)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		rec := CityRecord{City: name, State: d.cell(row, state)}
		if v, ok := d.number(row, lat); ok {
			rec.Lat = &v
		}
		if v, ok := d.number(row, lng); ok {
			rec.Lng = &v
		}
		out = append(out, rec)
	}
	return out, nil
}

// Stats returns record and distinct city/state counts plus the most frequent
// AQI category. Ties between categories go to the lexicographically smallest.
func (d *Dataset) Stats() (Stats, error) {
	if err := d.require(ColCity, ColState); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalRecords: len(d.rows),
		CitiesCount:  d.distinct(d.columns[ColCity]),
		StatesCount:  d.distinct(d.columns[ColState]),
	}
	if col, ok := d.columns[ColAQICategory]; ok {
		stats.MostCommonAQI = d.mode(col)
	}
	return stats, nil
}

func (d *Dataset) distinct(col int) int {
	seen := make(map[string]struct{})
	for _, row := range d.rows {
		if v := d.cell(row, col); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func (d *Dataset) mode(col int) string {
	counts := make(map[string]int)
	for _, row := range d.rows {
		if v := d.cell(row, col); v != "" {
			counts[v]++
		}
	}

	best, bestCount := "", 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}

// TopStatesByAverageAQI returns at most n states ordered by mean AQI,
// highest first. States with equal means keep the order in which they first
// appear in the file. Rows without a numeric AQI are ignored.
func (d *Dataset) TopStatesByAverageAQI(n int) ([]StateAQI, error) {
	if err := d.require(ColState, ColAQI); err != nil {
		return nil, err
	}
	stateCol, aqiCol := d.columns[ColState], d.columns[ColAQI]

	type acc struct {
		sum   float64
		count int
	}
	var order []string
	groups := make(map[string]*acc)
	for _, row := range d.rows {
		aqi, ok := d.number(row, aqiCol)
		if !ok {
			continue
		}
		state := d.cell(row, stateCol)
		if state == "" {
			continue
		}
		g, ok := groups[state]
		if !ok {
			g = &acc{}
			groups[state] = g
			order = append(order, state)
		}
		g.sum += aqi
		g.count++
	}

	out := make([]StateAQI, 0, len(order))
	for _, s := range order {
		g := groups[s]
		out = append(out, StateAQI{State: s, MeanAQI: g.sum / float64(g.count)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MeanAQI > out[j].MeanAQI
	})

	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// PollutantCorrelationMatrix returns Pearson correlations between the
// CorrelationColumns present in the dataset, each pair computed over the
// rows where both values are numeric.
func (d *Dataset) PollutantCorrelationMatrix() (Correlation, error) {
	if !d.Available() {
		return Correlation{}, ErrDataUnavailable
	}

	var cols []string
	var idx []int
	for _, c := range CorrelationColumns {
		if i, ok := d.columns[c]; ok {
			cols = append(cols, c)
			idx = append(idx, i)
		}
	}

	// Parse each column once; NaN marks a missing value.
	series := make([][]float64, len(idx))
	for k, col := range idx {
		series[k] = make([]float64, len(d.rows))
		for r, row := range d.rows {
			if v, ok := d.number(row, col); ok {
				series[k][r] = v
			} else {
				series[k][r] = math.NaN()
			}
		}
	}

	values := make([][]*float64, len(cols))
	for i := range values {
		values[i] = make([]*float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r, ok := pearson(series[i], series[j])
			if !ok {
				continue
			}
			ri, rj := r, r
			values[i][j] = &ri
			values[j][i] = &rj
		}
	}
	return Correlation{Columns: cols, Values: values}, nil
}

// pearson computes the correlation of x and y over indices where both are
// defined. It reports false when fewer than two pairs remain or either side
// has zero variance.
func pearson(x, y []float64) (float64, bool) {
	var n, sx, sy float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		n++
		sx += x[i]
		sy += y[i]
	}
	if n < 2 {
		return 0, false
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(vx*vy)
	// Clamp rounding noise.
	return math.Max(-1, math.Min(1, r)), true
}
