// Package cost estimates provider spend from token counts. Prices are
// per-million tokens and default to the models the pipeline ships with;
// unknown models cost zero rather than guessing.
package cost

// Pricing is the per-million-token price for one model.
type Pricing struct {
	InputUSD  float64
	OutputUSD float64
}

var modelPricing = map[string]Pricing{
	"claude-haiku-4-5-20251001": {InputUSD: 1.00, OutputUSD: 5.00},
	"gpt-4o-mini":               {InputUSD: 0.15, OutputUSD: 0.60},
	"text-embedding-3-small":    {InputUSD: 0.02},
	"text-embedding-3-large":    {InputUSD: 0.13},
}

// For returns the pricing for a model, zero if unknown.
func For(model string) Pricing {
	return modelPricing[model]
}

// Estimate returns the USD cost of one call.
func Estimate(model string, inputTokens, outputTokens int64) float64 {
	p := modelPricing[model]
	return float64(inputTokens)/1e6*p.InputUSD + float64(outputTokens)/1e6*p.OutputUSD
}
