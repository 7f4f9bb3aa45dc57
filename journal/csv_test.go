package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVJournalWritesRecords(t *testing.T) {
	dir := t.TempDir()
	ordersPath := filepath.Join(dir, "orders.csv")
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(ordersPath, tradesPath, equityPath)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordOrder(OrderRecord{
		OrderID:       "01HTEST",
		Side:          "buy",
		RequestedSize: 120,
		AdjustedSize:  100,
		SubmittedAt:   at,
		Status:        "success",
	}))
	require.NoError(t, j.RecordTrade(TradeRecord{
		RunID: "run-1", Time: at, Side: "buy", Size: 100, Price: 0.25,
		Gross: 25, Commission: 0.025, Reason: "breakout",
	}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		RunID: "run-1", Time: at, Cash: 975, Position: 100, MarkPrice: 0.25, TotalValue: 1000,
	}))
	require.NoError(t, j.Close())

	orders, err := os.ReadFile(ordersPath)
	require.NoError(t, err)
	assert.Contains(t, string(orders), "01HTEST")
	assert.Contains(t, string(orders), "buy")

	trades, err := os.ReadFile(tradesPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(trades)), "\n")
	assert.Len(t, lines, 2) // header + one trade
	assert.Contains(t, lines[1], "run-1")

	equity, err := os.ReadFile(equityPath)
	require.NoError(t, err)
	assert.Contains(t, string(equity), "1000")
}
