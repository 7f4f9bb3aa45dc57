package market

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSVWithHeader(t *testing.T) {
	path := writeTemp(t, `time,open,high,low,close,volume
2024-01-01T00:00:00Z,0.10,0.12,0.09,0.11,1000
2024-01-01T01:00:00Z,0.11,0.13,0.10,0.12,1500
`)
	s, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, s, 2)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s[0].Time)
	assert.Equal(t, 0.10, s[0].Open)
	assert.Equal(t, 0.12, s[0].High)
	assert.Equal(t, 0.09, s[0].Low)
	assert.Equal(t, 0.11, s[0].Close)
	assert.Equal(t, 1000.0, s[0].Volume)
	assert.Equal(t, 0.12, s[1].Close)
}

func TestLoadCSVWithoutHeader(t *testing.T) {
	path := writeTemp(t, "2024-01-01T00:00:00Z,0.10,0.12,0.09,0.11,1000\n")
	s, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, s, 1)
}

func TestLoadCSVUnixEpoch(t *testing.T) {
	path := writeTemp(t, "1704067200,0.10,0.12,0.09,0.11,1000\n")
	s, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s[0].Time)
}

func TestLoadCSVBadRow(t *testing.T) {
	path := writeTemp(t, "2024-01-01T00:00:00Z,0.10,0.12\n")
	_, err := LoadCSV(path)
	assert.Error(t, err)
}

func TestLoadCSVEmpty(t *testing.T) {
	path := writeTemp(t, "time,open,high,low,close,volume\n")
	_, err := LoadCSV(path)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
