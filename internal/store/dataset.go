package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrDataUnavailable is returned by every query when no dataset was loaded.
	ErrDataUnavailable = errors.New("dataset not loaded")
	// ErrMissingColumns is returned when a query needs a column the CSV lacks.
	ErrMissingColumns = errors.New("dataset is missing required columns")
)

// Logical column names, matched exactly after trimming header whitespace.
const (
	ColCity        = "City"
	ColState       = "State"
	ColLat         = "lat"
	ColLng         = "lng"
	ColAQI         = "AQI"
	ColAQICategory = "AQI_Category"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Dataset is the read-only air-quality table loaded at startup. It is never
// mutated after Load and is safe for concurrent use.
type Dataset struct {
	columns map[string]int
	rows    [][]string
	loadErr error
}

// Load reads the CSV at path. It always returns a Dataset; when the file is
// missing or unreadable the Dataset is unavailable and every query fails
// with ErrDataUnavailable.
func Load(path string) *Dataset {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("ERROR: could not load dataset %s: %v", path, err)
		return Unavailable(err)
	}

	text, encoding := decode(raw)
	d, err := Parse(strings.NewReader(text))
	if err != nil {
		log.Printf("ERROR: could not parse dataset %s: %v", path, err)
		return Unavailable(err)
	}
	log.Printf("INFO: dataset loaded from %s with %s encoding (%d records)", path, encoding, len(d.rows))
	return d
}

// Unavailable returns a Dataset that failed to load because of err.
func Unavailable(err error) *Dataset {
	if err == nil {
		err = ErrDataUnavailable
	}
	return &Dataset{loadErr: err}
}

// Parse reads CSV text whose first record is the header.
func Parse(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	d := &Dataset{
		columns: make(map[string]int, len(header)),
	}
	for i, h := range header {
		name := strings.TrimSpace(h)
		// First column wins on duplicate headers.
		if _, dup := d.columns[name]; !dup {
			d.columns[name] = i
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		d.rows = append(d.rows, rec)
	}
	return d, nil
}

// decode returns the file contents as UTF-8, falling back to Latin-1 for
// files that are not valid UTF-8.
func decode(raw []byte) (string, string) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), "utf-8"
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// Every byte is valid Latin-1, so this is unreachable in practice.
		return string(raw), "raw"
	}
	return string(out), "latin-1"
}

// Available reports whether the dataset loaded.
func (d *Dataset) Available() bool {
	return d != nil && d.loadErr == nil && d.columns != nil
}

// Err returns the load error of an unavailable dataset.
func (d *Dataset) Err() error {
	if d == nil {
		return ErrDataUnavailable
	}
	return d.loadErr
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if !d.Available() {
		return 0
	}
	return len(d.rows)
}

// HasColumns reports whether every named column is present.
func (d *Dataset) HasColumns(names ...string) bool {
	for _, n := range names {
		if _, ok := d.columns[n]; !ok {
			return false
		}
	}
	return true
}

func (d *Dataset) require(names ...string) error {
	if !d.Available() {
		return ErrDataUnavailable
	}
	var missing []string
	for _, n := range names {
		if _, ok := d.columns[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// cell returns the trimmed value of column col in row, or "" when the row is short.
func (d *Dataset) cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// number parses a numeric cell. Empty and non-numeric cells are missing.
func (d *Dataset) number(row []string, col int) (float64, bool) {
	s := d.cell(row, col)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
