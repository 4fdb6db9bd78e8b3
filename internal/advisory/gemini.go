package advisory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// contentGenerator is the part of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var _ Advisor = (*Gemini)(nil)

type Gemini struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGemini connects to the Gemini API with the given key.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, logger *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGemini(client.Models, model, timeout, logger), nil
}

func newGemini(models contentGenerator, model string, timeout time.Duration, logger *slog.Logger) *Gemini {
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{models: models, model: model, timeout: timeout, logger: logger}
}

var valuationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"resale_price_range": {Type: genai.TypeString, Description: "Second-hand resale price range in VND"},
		"safe_loan_range":    {Type: genai.TypeString, Description: "Loan amount range a pawn shop can safely lend in VND"},
		"key_checks": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Physical and software checks before accepting the device",
		},
		"market_note": {Type: genai.TypeString, Description: "One or two sentences on demand and liquidity"},
	},
	Required: []string{"resale_price_range", "safe_loan_range", "key_checks", "market_note"},
}

func (g *Gemini) ValuationAdvice(ctx context.Context, brand, model, condition string) *Valuation {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	device := strings.TrimSpace(brand + " " + model)
	if condition == "" {
		condition = "unknown"
	}
	prompt := fmt.Sprintf(`You are a pricing assistant for a pawn shop in Vietnam.
Device: %s
Condition: %s
Estimate the second-hand resale price and a safe pawn loan range in VND, list the key checks
before accepting the device, and add a short market note.`, device, condition)

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   valuationSchema,
	})
	if err != nil {
		g.logger.Warn("valuation advice failed", slog.String("device", device), slog.String("error", err.Error()))
		return nil
	}

	var valuation Valuation
	if err := json.Unmarshal([]byte(resp.Text()), &valuation); err != nil {
		g.logger.Warn("valuation advice unreadable", slog.String("device", device), slog.String("error", err.Error()))
		return nil
	}
	return &valuation
}

func (g *Gemini) AnalyzeDeviceImage(ctx context.Context, image []byte, mimeType string) string {
	if len(image) == 0 {
		return ""
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(`This photo shows a device offered as pawn collateral. Identify the brand and model
if possible and describe visible damage, wear and anything the shop should verify in person. Answer in a
short paragraph.`),
	}
	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		g.logger.Warn("image analysis failed", slog.String("mime_type", mimeType), slog.String("error", err.Error()))
		return ""
	}
	return strings.TrimSpace(resp.Text())
}

func (g *Gemini) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
