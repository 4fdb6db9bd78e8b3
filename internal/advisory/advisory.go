// Package advisory asks a generative model for device valuations and photo
// checks. Advice is best effort: failures are logged and come back empty.
package advisory

import (
	"context"
)

// Valuation is the model's view of a device's market value.
type Valuation struct {
	ResalePriceRange string   `json:"resale_price_range"`
	SafeLoanRange    string   `json:"safe_loan_range"`
	KeyChecks        []string `json:"key_checks"`
	MarketNote       string   `json:"market_note"`
}

// Advisor produces advisory text for the shop. Implementations never fail:
// a nil Valuation or an empty string means no advice.
type Advisor interface {
	ValuationAdvice(ctx context.Context, brand, model, condition string) *Valuation
	AnalyzeDeviceImage(ctx context.Context, image []byte, mimeType string) string
}

// Noop is used when no model is configured.
type Noop struct{}

func (Noop) ValuationAdvice(context.Context, string, string, string) *Valuation { return nil }

func (Noop) AnalyzeDeviceImage(context.Context, []byte, string) string { return "" }
