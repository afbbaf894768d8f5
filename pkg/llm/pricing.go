package llm

// tier is the per-million-token price of a model.
type tier struct {
	inputUSD  float64
	outputUSD float64
}

// pricing maps model identifier prefixes to their cost tier. Unknown models
// fall back to the default tier so cost accounting never silently reads zero.
var pricing = map[string]tier{
	"gpt-4o":      {inputUSD: 2.50, outputUSD: 10.00},
	"gpt-4o-mini": {inputUSD: 0.15, outputUSD: 0.60},
	"o3-mini":     {inputUSD: 1.10, outputUSD: 4.40},
}

var defaultTier = tier{inputUSD: 2.50, outputUSD: 10.00}

// Cost returns the USD cost of one call for the given model and token counts.
func Cost(model string, tokensIn, tokensOut int) float64 {
	t, ok := pricing[model]
	if !ok {
		t = defaultTier
	}

	const perTokens = 1_000_000

	return float64(tokensIn)/perTokens*t.inputUSD + float64(tokensOut)/perTokens*t.outputUSD
}
