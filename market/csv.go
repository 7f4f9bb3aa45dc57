package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads candles from a CSV file with columns
// time,open,high,low,close,volume. Time is RFC3339 or a unix epoch in
// seconds; a header row is detected and skipped. Rows must be ordered
// oldest first.
func LoadCSV(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	first, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read candle file: %w", err)
	}

	var series Series
	hasHeader := len(first) > 0 && strings.EqualFold(strings.TrimSpace(first[0]), "time")
	if !hasHeader {
		c, err := parseCandleRow(first)
		if err != nil {
			return nil, err
		}
		series = append(series, c)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read candle row: %w", err)
		}
		if len(row) == 0 {
			continue
		}
		c, err := parseCandleRow(row)
		if err != nil {
			return nil, err
		}
		series = append(series, c)
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("candle file %s: %w", path, ErrNoData)
	}
	return series, nil
}

func parseCandleRow(row []string) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("bad candle row (need time,open,high,low,close,volume): %v", row)
	}

	ts := strings.TrimSpace(row[0])
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		epoch, err2 := strconv.ParseInt(ts, 10, 64)
		if err2 != nil {
			return Candle{}, fmt.Errorf("bad candle time %q: %w", row[0], err)
		}
		t = time.Unix(epoch, 0).UTC()
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return Candle{}, fmt.Errorf("bad candle field %q: %w", row[i+1], err)
		}
		vals[i] = v
	}

	return Candle{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
