package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Expected CSV header columns. target and tradable are optional.
const (
	colDate       = "trade_date"
	colInstrument = "instrument"
	colScore      = "score"
	colPrice      = "price"
	colTarget     = "target"
	colTradable   = "tradable"
)

// LoadCSV reads a tidy observation panel from a CSV file with a header row.
// Empty price/target cells become NaN, an empty tradable cell means no flag.
func LoadCSV(path string) (*ObservationPanel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open panel csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV reads a tidy observation panel from CSV data.
func ReadCSV(r io.Reader) (*ObservationPanel, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read panel header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colDate, colInstrument, colScore, colPrice} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("panel csv missing column %q", required)
		}
	}

	var rows []Observation
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read panel row %d: %w", line, err)
		}
		line++

		date, err := parseDate(record[cols[colDate]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		obs := Observation{
			Date:       date,
			Instrument: strings.TrimSpace(record[cols[colInstrument]]),
			Score:      parseFloatCell(record[cols[colScore]]),
			Price:      parseFloatCell(record[cols[colPrice]]),
			Target:     math.NaN(),
		}
		if idx, ok := cols[colTarget]; ok && idx < len(record) {
			obs.Target = parseFloatCell(record[idx])
		}
		if idx, ok := cols[colTradable]; ok && idx < len(record) {
			if cell := strings.TrimSpace(record[idx]); cell != "" {
				flag, err := strconv.ParseBool(cell)
				if err != nil {
					return nil, fmt.Errorf("row %d: invalid tradable flag %q", line, cell)
				}
				obs.Tradable = &flag
			}
		}
		rows = append(rows, obs)
	}

	return NewObservationPanel(rows)
}

func parseDate(cell string) (time.Time, error) {
	text := strings.TrimSpace(cell)
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, text); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid trade_date %q", cell)
}

func parseFloatCell(cell string) float64 {
	text := strings.TrimSpace(cell)
	if text == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
