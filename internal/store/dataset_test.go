package store

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = ` City , State ,lat,lng,AQI,AQI_Category,PM2.5,PM10,NO2,SO2,CO
Delhi,Delhi,28.61,77.21,300,Poor,150,250,40,10,1.5
Delhi,Delhi,28.70,77.10,200,Poor,100,180,35,10,1.2
Mumbai,Maharashtra,19.07,72.87,100,Moderate,50,90,20,10,0.8
Pune , Maharashtra,18.52,n/a,150,Moderate,75,120,25,10,1.0
`

func mustParse(t *testing.T, text string) *Dataset {
	t.Helper()
	d, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestListCitiesKeepsFirstOccurrence(t *testing.T) {
	d := mustParse(t, sampleCSV)

	cities, err := d.ListCities()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cities) != 3 {
		t.Fatalf("expected 3 cities, got %d: %+v", len(cities), cities)
	}

	delhi := cities[0]
	if delhi.City != "Delhi" || delhi.Lat == nil || *delhi.Lat != 28.61 {
		t.Fatalf("expected first Delhi row to win, got %+v", delhi)
	}

	pune := cities[2]
	if pune.City != "Pune" || pune.State != "Maharashtra" {
		t.Fatalf("expected trimmed Pune, Maharashtra, got %q, %q", pune.City, pune.State)
	}
	if pune.Lat == nil || pune.Lng != nil {
		t.Fatalf("expected numeric lat and null lng for Pune, got %+v", pune)
	}
}

func TestListCitiesMissingColumns(t *testing.T) {
	d := mustParse(t, "City,State\nDelhi,Delhi\n")

	_, err := d.ListCities()
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if !strings.Contains(err.Error(), "lat") || !strings.Contains(err.Error(), "lng") {
		t.Fatalf("expected missing columns to be named, got %v", err)
	}
}

func TestStatsModeTieBreaksLexicographically(t *testing.T) {
	d := mustParse(t, sampleCSV)

	stats, err := d.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalRecords != 4 {
		t.Fatalf("expected 4 records, got %d", stats.TotalRecords)
	}
	if stats.CitiesCount != 3 || stats.StatesCount != 2 {
		t.Fatalf("expected 3 cities and 2 states, got %d and %d", stats.CitiesCount, stats.StatesCount)
	}
	// Poor and Moderate both occur twice.
	if stats.MostCommonAQI != "Moderate" {
		t.Fatalf("expected Moderate, got %q", stats.MostCommonAQI)
	}
}

func TestStatsWithoutCategoryColumn(t *testing.T) {
	d := mustParse(t, "City,State\nDelhi,Delhi\n")

	stats, err := d.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.MostCommonAQI != "" {
		t.Fatalf("expected empty category, got %q", stats.MostCommonAQI)
	}
}

func TestTopStatesByAverageAQI(t *testing.T) {
	d := mustParse(t, sampleCSV)

	states, err := d.TopStatesByAverageAQI(15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %+v", states)
	}
	if states[0].State != "Delhi" || states[0].MeanAQI != 250 {
		t.Fatalf("expected Delhi at 250 first, got %+v", states[0])
	}
	if states[1].State != "Maharashtra" || states[1].MeanAQI != 125 {
		t.Fatalf("expected Maharashtra at 125 second, got %+v", states[1])
	}
}

func TestTopStatesLimitAndStableTies(t *testing.T) {
	var b strings.Builder
	b.WriteString("State,AQI\n")
	// Twenty states; SA..SJ share the highest mean.
	for i := 0; i < 20; i++ {
		aqi := "50"
		if i < 10 {
			aqi = "100"
		}
		b.WriteString("S" + string(rune('A'+i)) + "," + aqi + "\n")
	}
	b.WriteString("SZ,not-a-number\n")
	b.WriteString(",500\n")

	d := mustParse(t, b.String())
	states, err := d.TopStatesByAverageAQI(15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 15 {
		t.Fatalf("expected 15 states, got %d", len(states))
	}
	for i := 0; i < 10; i++ {
		want := "S" + string(rune('A'+i))
		if states[i].State != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, states[i].State)
		}
	}
	for i := 1; i < len(states); i++ {
		if states[i].MeanAQI > states[i-1].MeanAQI {
			t.Fatalf("states not in descending order at %d: %+v", i, states)
		}
	}
}

func TestPollutantCorrelationMatrix(t *testing.T) {
	d := mustParse(t, sampleCSV)

	corr, err := d.PollutantCorrelationMatrix()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(corr.Columns, ",") != strings.Join(CorrelationColumns, ",") {
		t.Fatalf("expected all correlation columns, got %v", corr.Columns)
	}

	// PM2.5 is exactly AQI/2.
	aqiPM := corr.Values[0][1]
	if aqiPM == nil || math.Abs(*aqiPM-1) > 1e-9 {
		t.Fatalf("expected AQI/PM2.5 correlation of 1, got %v", aqiPM)
	}
	if corr.Values[1][0] == nil || *corr.Values[1][0] != *aqiPM {
		t.Fatalf("expected a symmetric matrix")
	}

	// SO2 is constant, so every pair with it is undefined.
	so2 := 4
	for j := range corr.Columns {
		if corr.Values[so2][j] != nil {
			t.Fatalf("expected nil correlation for SO2/%s, got %v", corr.Columns[j], *corr.Values[so2][j])
		}
	}

	for i := range corr.Values {
		for j, v := range corr.Values[i] {
			if v != nil && (*v < -1 || *v > 1) {
				t.Fatalf("correlation %d,%d out of range: %v", i, j, *v)
			}
		}
	}
}

func TestCorrelationSkipsAbsentColumns(t *testing.T) {
	d := mustParse(t, "AQI,CO\n1,2\n2,4\n3,7\n")

	corr, err := d.PollutantCorrelationMatrix()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(corr.Columns) != 2 || corr.Columns[0] != "AQI" || corr.Columns[1] != "CO" {
		t.Fatalf("expected [AQI CO], got %v", corr.Columns)
	}
}

func TestUnavailableDataset(t *testing.T) {
	d := Load(filepath.Join(t.TempDir(), "missing.csv"))

	if d.Available() {
		t.Fatalf("expected dataset to be unavailable")
	}
	if d.Len() != 0 {
		t.Fatalf("expected no records, got %d", d.Len())
	}
	if _, err := d.ListCities(); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("ListCities: expected ErrDataUnavailable, got %v", err)
	}
	if _, err := d.Stats(); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("Stats: expected ErrDataUnavailable, got %v", err)
	}
	if _, err := d.TopStatesByAverageAQI(15); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("TopStates: expected ErrDataUnavailable, got %v", err)
	}
	if _, err := d.PollutantCorrelationMatrix(); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("Correlation: expected ErrDataUnavailable, got %v", err)
	}
}

func TestLoadLatin1Fallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.csv")
	// 0xE9 is é in ISO-8859-1 and invalid as UTF-8 on its own.
	raw := []byte("City,State,lat,lng\nSal\xe9m,Tamil Nadu,11.66,78.15\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := Load(path)
	if !d.Available() {
		t.Fatalf("expected dataset to load, got %v", d.Err())
	}
	cities, err := d.ListCities()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cities[0].City != "Salém" {
		t.Fatalf("expected Salém, got %q", cities[0].City)
	}
}

func TestLoadStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.csv")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("City,State\nDelhi,Delhi\n")...)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := Load(path)
	if !d.HasColumns(ColCity, ColState) {
		t.Fatalf("expected City column after BOM removal")
	}
}

func TestDuplicateHeaderFirstWins(t *testing.T) {
	d := mustParse(t, "City,State,City\nDelhi,Delhi,Other\n")

	stats, err := d.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.CitiesCount != 1 {
		t.Fatalf("expected 1 city, got %d", stats.CitiesCount)
	}
	cities := d.rows[0][d.columns[ColCity]]
	if cities != "Delhi" {
		t.Fatalf("expected first City column to win, got %q", cities)
	}
}

func TestListCitiesSkipsBlankNames(t *testing.T) {
	d := mustParse(t, "City,State,lat,lng\n ,Delhi,1,2\nDelhi,Delhi,28.61,77.21\n,Goa,3,4\n")

	cities, err := d.ListCities()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cities) != 1 || cities[0].City != "Delhi" {
		t.Fatalf("expected only Delhi, got %+v", cities)
	}
}
