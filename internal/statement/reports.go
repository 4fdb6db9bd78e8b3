package statement

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/segyhp/pawn-ledger/internal/domain"
)

const contractsTemplate = `# {{ .Title }} on {{ .ReferenceDate }}
{{ if not .Contracts }}
No contracts.
{{ else }}
| Contract | Customer | Device | Due | Overdue days | Principal | Interest owed | Redemption total |
|:---|:---|:---|:---|---:|---:|---:|---:|
{{- range .Contracts }}
| {{ shortID .ID }} | {{ cell .CustomerName }} | {{ cell .Device }} | {{ date .DueDate }} | {{ .Accrual.OverdueDays }} | {{ money .LoanAmount }} | {{ money .Accrual.InterestOwed }} | {{ money .RedemptionTotal }} |
{{- end }}
{{ end -}}
`

const summaryTemplate = `# Book on {{ .ReferenceDate }}

| | |
|:---|---:|
| Active contracts | {{ .ActiveContracts }} |
| Outstanding principal | {{ money .OutstandingPrincipal }} |
| Interest owed | {{ money .InterestOwed }} |
| Overdue | {{ .OverdueContracts }} |
| Due today | {{ .DueToday }} |
`

var (
	contractsTmpl = template.Must(template.New("contracts").Funcs(funcs).Parse(contractsTemplate))
	summaryTmpl   = template.Must(template.New("summary").Funcs(funcs).Parse(summaryTemplate))
)

// ContractsMarkdown renders a table of contract positions under title.
func ContractsMarkdown(title, referenceDate string, views []*domain.ContractView) (string, error) {
	var b strings.Builder
	err := contractsTmpl.Execute(&b, struct {
		Title         string
		ReferenceDate string
		Contracts     []*domain.ContractView
	}{title, referenceDate, views})
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", strings.ToLower(title), err)
	}
	return b.String(), nil
}

// SummaryMarkdown renders the dashboard rollup.
func SummaryMarkdown(summary *domain.Summary) (string, error) {
	var b strings.Builder
	if err := summaryTmpl.Execute(&b, summary); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return b.String(), nil
}
