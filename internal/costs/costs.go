// Package costs estimates the USD cost of an LLM call from its model name
// and token counts. Estimation never fails: unknown models fall back to an
// average mid-tier rate so that cost handling can never block ingestion.
package costs

import "strings"

// ModelPrice holds USD prices per million tokens.
type ModelPrice struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// pricing is the static price table, keyed by canonical model name.
var pricing = map[string]ModelPrice{
	"gpt-4o":            {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":       {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4-turbo":       {InputPerMillion: 10.00, OutputPerMillion: 30.00},
	"gpt-4":             {InputPerMillion: 30.00, OutputPerMillion: 60.00},
	"gpt-3.5-turbo":     {InputPerMillion: 0.50, OutputPerMillion: 1.50},
	"o1":                {InputPerMillion: 15.00, OutputPerMillion: 60.00},
	"o1-mini":           {InputPerMillion: 1.10, OutputPerMillion: 4.40},
	"claude-3-opus":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-3-5-sonnet": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-3-haiku":    {InputPerMillion: 0.25, OutputPerMillion: 1.25},
	"gemini-1.5-pro":    {InputPerMillion: 1.25, OutputPerMillion: 5.00},
	"gemini-1.5-flash":  {InputPerMillion: 0.075, OutputPerMillion: 0.30},
	"mistral-large":     {InputPerMillion: 2.00, OutputPerMillion: 6.00},
	"llama-3.1-70b":     {InputPerMillion: 0.90, OutputPerMillion: 0.90},
}

// aliases maps preview/dated/vendor-prefixed variants to canonical names.
var aliases = map[string]string{
	"gpt-4o-2024-08-06":          "gpt-4o",
	"gpt-4o-2024-05-13":          "gpt-4o",
	"gpt-4o-mini-2024-07-18":     "gpt-4o-mini",
	"gpt-4-turbo-preview":        "gpt-4-turbo",
	"gpt-4-0125-preview":         "gpt-4-turbo",
	"gpt-4-1106-preview":         "gpt-4-turbo",
	"gpt-3.5-turbo-0125":         "gpt-3.5-turbo",
	"o1-preview":                 "o1",
	"claude-3-opus-20240229":     "claude-3-opus",
	"claude-3-5-sonnet-20240620": "claude-3-5-sonnet",
	"claude-3-5-sonnet-20241022": "claude-3-5-sonnet",
	"claude-3-5-sonnet-latest":   "claude-3-5-sonnet",
	"claude-3-5-haiku-20241022":  "claude-3-5-haiku",
	"claude-3-haiku-20240307":    "claude-3-haiku",
	"gemini-1.5-pro-latest":      "gemini-1.5-pro",
	"gemini-1.5-flash-latest":    "gemini-1.5-flash",
	"mistral-large-latest":       "mistral-large",
}

// fallback is the average of the table, computed once at init. Used for
// models the table does not know.
var fallback = averagePrice()

func averagePrice() ModelPrice {
	var in, out float64
	for _, p := range pricing {
		in += p.InputPerMillion
		out += p.OutputPerMillion
	}
	n := float64(len(pricing))
	return ModelPrice{InputPerMillion: in / n, OutputPerMillion: out / n}
}

// NormalizeModel resolves aliases and casing to a canonical model name.
// Unknown names are returned lowercased and trimmed.
func NormalizeModel(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	if canonical, ok := aliases[m]; ok {
		return canonical
	}
	return m
}

// Price returns the price entry for a model and whether it was found in the
// table. Callers that only need a cost should use Estimate.
func Price(model string) (ModelPrice, bool) {
	p, ok := pricing[NormalizeModel(model)]
	if !ok {
		return fallback, false
	}
	return p, true
}

// Estimate computes the USD cost of a call from separate prompt and
// completion token counts.
func Estimate(model string, promptTokens, completionTokens int) float64 {
	p, _ := Price(model)
	return float64(promptTokens)/1e6*p.InputPerMillion +
		float64(completionTokens)/1e6*p.OutputPerMillion
}

// EstimateTotal prices a call when only a total token count is known,
// splitting it 50/50 between input and output.
func EstimateTotal(model string, totalTokens int) float64 {
	half := float64(totalTokens) / 2
	p, _ := Price(model)
	return half/1e6*p.InputPerMillion + half/1e6*p.OutputPerMillion
}
