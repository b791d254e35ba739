// Package charts turns dataset aggregates into Plotly figure specs that the
// dashboard renders with Plotly.newPlot.
package charts

import (
	"fmt"

	"github.com/i474232898/aqi-predictor/internal/store"
)

const (
	TopStatesTitle   = "Top %d States by Average AQI"
	CorrelationTitle = "Correlation Matrix of Pollutants"
)

// plasmaR is Plotly's reversed Plasma sequence, used as the bar palette.
var plasmaR = []string{
	"#f0f921", "#fdca26", "#fb9f3a", "#ed7953", "#d8576b",
	"#bd3786", "#9c179e", "#7201a8", "#46039f", "#0d0887",
}

// Chart is one figure: traces plus layout.
type Chart struct {
	Title  string           `json:"title"`
	Data   []map[string]any `json:"data"`
	Layout map[string]any   `json:"layout"`
}

// Build returns every chart the dataset has the columns for. It fails with
// store.ErrDataUnavailable when no dataset is loaded.
func Build(d *store.Dataset, topStates int) ([]Chart, error) {
	if !d.Available() {
		return nil, store.ErrDataUnavailable
	}

	charts := make([]Chart, 0, 2)

	if d.HasColumns(store.ColState, store.ColAQI) {
		states, err := d.TopStatesByAverageAQI(topStates)
		if err != nil {
			return nil, fmt.Errorf("top states: %w", err)
		}
		charts = append(charts, TopStates(states, topStates))
	}

	corr, err := d.PollutantCorrelationMatrix()
	if err != nil {
		return nil, fmt.Errorf("correlation matrix: %w", err)
	}
	if len(corr.Columns) > 1 {
		charts = append(charts, CorrelationHeatmap(corr))
	}

	return charts, nil
}

// TopStates renders a bar chart of mean AQI per state.
func TopStates(states []store.StateAQI, limit int) Chart {
	x := make([]string, len(states))
	y := make([]float64, len(states))
	colors := make([]string, len(states))
	for i, s := range states {
		x[i] = s.State
		y[i] = s.MeanAQI
		colors[i] = plasmaR[i%len(plasmaR)]
	}

	title := fmt.Sprintf(TopStatesTitle, limit)
	return Chart{
		Title: title,
		Data: []map[string]any{{
			"type":   "bar",
			"name":   "AQI",
			"x":      x,
			"y":      y,
			"marker": map[string]any{"color": colors},
		}},
		Layout: map[string]any{
			"title":  map[string]any{"text": title},
			"xaxis":  map[string]any{"title": map[string]any{"text": "State"}},
			"yaxis":  map[string]any{"title": map[string]any{"text": "AQI"}},
			"margin": map[string]any{"t": 60, "b": 120},
		},
	}
}

// CorrelationHeatmap renders the correlation matrix with values annotated.
// Undefined cells are null so that Plotly leaves them blank.
func CorrelationHeatmap(c store.Correlation) Chart {
	return Chart{
		Title: CorrelationTitle,
		Data: []map[string]any{{
			"type":         "heatmap",
			"x":            c.Columns,
			"y":            c.Columns,
			"z":            c.Values,
			"zmin":         -1,
			"zmax":         1,
			"colorscale":   "RdBu",
			"reversescale": true,
			"texttemplate": "%{z:.2f}",
		}},
		Layout: map[string]any{
			"title": map[string]any{"text": CorrelationTitle},
			"xaxis": map[string]any{"side": "bottom"},
			"yaxis": map[string]any{"autorange": "reversed"},
		},
	}
}
