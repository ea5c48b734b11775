package report

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

var markdownFuncs = template.FuncMap{
	"money":  money,
	"pct":    pct,
	"num":    func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"signed": func(v float64) string { return fmt.Sprintf("%+.2f", v) },
	"date":   func(e Export) string { return e.GeneratedAt.Format("2006-01-02 15:04 MST") },
	"mark":   statusMark,
	"escape": func(s string) string { return strings.ReplaceAll(s, "|", `\|`) },
	"pos":    func(i int) int { return i + 1 },
}

const markdownTemplate = `# Backtest report

Generated {{ date . }} (run ` + "`{{ .RunID }}`" + `)
{{ range .Runs }}
## {{ escape .Label }}

Source: ` + "`{{ .Source }}`" + `{{ if .Skipped }} ({{ .Skipped }} rows skipped){{ end }}
{{ with .Summary }}{{ if .TotalTrades }}
| Metric | Value |
|---|---|
| Trades | {{ .TotalTrades }} ({{ .Wins }} W / {{ .Losses }} L / {{ .Breakeven }} BE) |
| Win rate | {{ pct .WinRate }} |
| Net profit | {{ money .NetProfit }} |
| Gross profit / loss | {{ money .GrossProfit }} / {{ money .GrossLoss }} |
| Profit factor | {{ num .ProfitFactor }} |
| Expectancy | {{ money .Expectancy }} |
| Max drawdown | {{ money .MaxDrawdown }} ({{ pct .MaxDrawdownPct }}) |
| Streaks W / L | {{ .MaxConsecutiveWins }} / {{ .MaxConsecutiveLosses }} |
{{ if .ByExitReason }}
| Exit reason | Count | Win rate | Profit |
|---|---:|---:|---:|
{{ range .ByExitReason }}| {{ escape .Key }} | {{ .Count }} | {{ pct .WinRate }} | {{ money .Profit }} |
{{ end }}{{ end }}{{ else }}
No trades.
{{ end }}{{ end }}{{ with .Signals }}
Signals: {{ .Total }} evaluated, {{ .Buys }} BUY, {{ .Sells }} SELL, {{ .Skips }} SKIP ({{ pct .SkipRate }}).
{{ end }}{{ range .Sweeps }}
### Entry filter: {{ .Metric }}

| Min | Trades | Win rate | PF | Net |
|---:|---:|---:|---:|---:|
{{ range .Rows }}| {{ num .Threshold }} | {{ .Kept }} | {{ pct .Summary.WinRate }} | {{ num .Summary.ProfitFactor }} | {{ money .Summary.NetProfit }} |
{{ end }}{{ end }}{{ end }}{{ range .Comparisons }}
## {{ escape .Candidate }} vs {{ escape .Baseline }}

| Metric | {{ escape .Baseline }} | {{ escape .Candidate }} | Delta | |
|---|---:|---:|---:|---|
{{ range .Deltas }}| {{ .Metric }} | {{ num .Baseline }} | {{ num .Candidate }} | {{ signed .Delta }} | {{ mark .Status }} |
{{ end }}
{{ .Improved }} improved, {{ .Regressed }} regressed.
{{ end }}{{ with .Validation }}
## Validation against {{ escape .Reference }}

| Metric | Expected | Actual | Diff | |
|---|---:|---:|---:|---|
{{ range .Results }}| {{ .Metric }} | {{ num .Expected }} | {{ num .Actual }} | {{ signed .Diff }} | {{ if .Match }}OK{{ else }}**MISMATCH**{{ end }} |
{{ end }}
Accuracy: {{ .Matched }}/{{ .Checked }} ({{ pct .Accuracy }}).
{{ end }}{{ with .LogDiff }}
Trade-level accuracy: {{ pct .Accuracy }} over {{ .Compared }} trades ({{ .CountA }} vs {{ .CountB }}).
{{ range .Mismatches }}- #{{ pos .Index }} {{ .Time }}: {{ num .ProfitA }} vs {{ num .ProfitB }} ({{ .Reason }})
{{ end }}{{ end }}`

var markdown = template.Must(template.New("report").Funcs(markdownFuncs).Parse(markdownTemplate))

// WriteMarkdown renders e as a markdown document.
func WriteMarkdown(w io.Writer, e Export) error {
	return markdown.Execute(w, e)
}
