package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/lotworks/vinvalue/internal/match"
	"github.com/lotworks/vinvalue/pkg/kbb"
)

// Result is the per-vehicle valuation outcome. Failures are reported in
// Errors rather than raised, so a batch always gets one Result per record.
type Result struct {
	ID    string `json:"id,omitempty"`
	Vin   string `json:"vin,omitempty"`
	Year  int    `json:"year,omitempty"`
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Trim  string `json:"trim,omitempty"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	NumCallsMade         int              `json:"numCallsMade"`
	UsedLowestPricedTrim bool             `json:"usedLowestPricedTrim,omitempty"`
	ConfiguredValue      *decimal.Decimal `json:"configuredValue,omitempty"`
	Prices               []kbb.Price      `json:"prices,omitempty"`

	// Diagnostic fields, populated only for verbose reports.
	MatchedTrim        string              `json:"matchedTrim,omitempty"`
	AvailableTrims     []string            `json:"availableTrims,omitempty"`
	MatchedOptions     []match.OptionMatch `json:"matchedOptions,omitempty"`
	AvailableOptions   []string            `json:"availableOptions,omitempty"`
	FinalConfiguration []int               `json:"finalConfiguration,omitempty"`
}

// Matched reports whether the vehicle was actually priced.
func (r *Result) Matched() bool {
	return len(r.Prices) > 0
}
