package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

// RunSummary is the report-ready view of one simulation run, written as
// an org-mode entry for the research notebook.
type RunSummary struct {
	RunID     string
	Created   time.Time
	Symbol    string
	Timeframe string
	Dataset   string

	Start time.Time
	End   time.Time

	InitialCapital float64
	FinalValue     float64

	TotalReturnPct      float64
	AnnualizedReturnPct float64
	SharpeRatio         float64
	MaxDrawdownPct      float64

	Trades       int
	RoundTrips   int
	WinningTrips int
	WinRatePct   float64
	AvgTripPct   float64

	Notes       []string
	NextActions []string
}

// LosingTrips is the complement of WinningTrips.
func (v *RunSummary) LosingTrips() int { return v.RoundTrips - v.WinningTrips }

var runOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

// WriteOrg renders the summary to an org file at path.
func (v *RunSummary) WriteOrg(path string) error {
	t, err := template.New("run").Funcs(runOrgFuncs).Parse(runOrgTemplate)
	if err != nil {
		return fmt.Errorf("parse run template: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := t.Execute(buf, v); err != nil {
		return fmt.Errorf("render run template: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write org file: %w", err)
	}
	return nil
}

const runOrgTemplate = `
* BACKTEST: {{.Symbol}} {{if .Timeframe}}{{.Timeframe}}{{else}}(timeframe?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:SYMBOL:      {{.Symbol}}
:TIMEFRAME:   {{if .Timeframe}}{{.Timeframe}}{{else}}(timeframe?){{end}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .InitialCapital}}
:END_BAL:     {{printf "%.2f" .FinalValue}}
:RETURN_PCT:  {{printf "%.2f" .TotalReturnPct}}
:ANNUAL_PCT:  {{printf "%.2f" .AnnualizedReturnPct}}
:SHARPE:      {{printf "%.2f" .SharpeRatio}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDrawdownPct}}
:TRADES:      {{.Trades}}
:ROUND_TRIPS: {{.RoundTrips}}
:WIN_RATE:    {{printf "%.2f" .WinRatePct}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Return:           *{{printf "%.2f" .TotalReturnPct}}%*
- Annualized:       *{{printf "%.2f" .AnnualizedReturnPct}}%*
- Sharpe:           *{{printf "%.2f" .SharpeRatio}}*
- Max Drawdown:     *{{printf "%.2f" .MaxDrawdownPct}}%*
- Win Rate:         *{{printf "%.2f" .WinRatePct}}%*
- Avg Trip Return:  *{{printf "%.2f" .AvgTripPct}}%*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.WinningTrips}} |
| Losses  | {{.LosingTrips}} |
| Trips   | {{.RoundTrips}} |
| Fills   | {{.Trades}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}
** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
