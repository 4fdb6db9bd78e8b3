// Package statement renders a contract statement as markdown, and as HTML
// through goldmark.
package statement

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const statementTemplate = `# Pawn contract {{ shortID .ID }}

**Customer:** {{ .CustomerName }}{{ if .CustomerPhone }} ({{ .CustomerPhone }}){{ end }}  
**Device:** {{ .Device }}  
**Status:** {{ .DisplayStatus }}{{ if .Paperless }} · paperless{{ end }}

| Term | Value |
|:---|---:|
| Pawn date | {{ date .PawnDate }} |
| Due date | {{ date .DueDate }} |
| Last paid | {{ date .LastPaidDate }} |
| Principal | {{ money .LoanAmount }} |
| Rate (per million per day) | {{ .InterestRate.String }} |
| Daily interest | {{ money .DailyInterest }} |

## Position on {{ .ReferenceDate }}

| | |
|:---|---:|
| Days accrued | {{ .Accrual.TotalDays }} |
| Interest owed | {{ money .Accrual.InterestOwed }} |
| Overdue days | {{ .Accrual.OverdueDays }} |
| **Redemption total** | **{{ money .RedemptionTotal }}** |

## Interest segments

| # | From | To | Principal | Rate |
|---:|:---|:---|---:|---:|
{{- range $i, $s := .Segments }}
| {{ inc $i }} | {{ date $s.StartDate }} | {{ if $s.EndDate }}{{ date $s.EndDate }}{{ else }}open{{ end }} | {{ money $s.Principal }} | {{ $s.InterestRate.String }} |
{{- end }}

## Transactions

| When | Kind | Amount | Description |
|:---|:---|---:|:---|
{{- range .Transactions }}
| {{ timestamp .OccurredAt }} | {{ .Kind }} | {{ money .Amount }} | {{ cell .Description }} |
{{- end }}
{{ if .Notes }}
## Notes

{{ .Notes }}
{{ end -}}
`

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return utils.FormatMoney(d) },
	"date": func(v any) string {
		switch t := v.(type) {
		case time.Time:
			return utils.FormatDate(t)
		case *time.Time:
			return utils.FormatDate(*t)
		}
		return ""
	},
	"timestamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
	"shortID":   func(id fmt.Stringer) string { return strings.ToUpper(id.String()[:8]) },
	"inc":       func(i int) int { return i + 1 },
	"cell":      func(s string) string { return strings.ReplaceAll(s, "|", "\\|") },
}

var tmpl = template.Must(template.New("statement").Funcs(funcs).Parse(statementTemplate))

// Markdown renders the statement of a contract view.
func Markdown(view *domain.ContractView) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("failed to render statement: %w", err)
	}
	return b.String(), nil
}

var renderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML converts a markdown statement to an HTML fragment.
func HTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("failed to convert statement: %w", err)
	}
	return buf.Bytes(), nil
}
