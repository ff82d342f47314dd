// Package match resolves free-text dealer descriptions against the
// provider's trim and option catalogs using word-level elimination with
// deterministic tie-breaks.
package match

import (
	"strings"

	"github.com/lotworks/vinvalue/internal/vocab"
	"github.com/lotworks/vinvalue/pkg/kbb"
)

// ResolveTrim narrows the candidate trims to exactly one using the tokens of
// the local trim text, in order. A token that would eliminate every remaining
// candidate is skipped. Terminal ambiguity falls back to an exact full-name
// comparison; anything still unresolved returns nil, signalling the caller to
// use lowest-priced-trim selection.
func ResolveTrim(trims []kbb.TrimSummary, localTrim string) *kbb.TrimSummary {
	if len(trims) == 0 {
		return nil
	}

	normalized := vocab.NormalizeTrim(localTrim)
	candidates := make([]*kbb.TrimSummary, 0, len(trims))
	for i := range trims {
		candidates = append(candidates, &trims[i])
	}

	for _, token := range strings.Fields(strings.ToUpper(normalized)) {
		if len(candidates) == 1 {
			break
		}
		filtered := candidates[:0:0]
		for _, t := range candidates {
			if containsWord(t.TrimName, token) {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) == 0 {
			continue // token has no counterpart in any candidate; skip it
		}
		candidates = filtered
	}

	if len(candidates) == 1 {
		return candidates[0]
	}

	// Several trims share every supplied token ("SE Premium" vs "SE Premium
	// Package"). An exact name match wins; otherwise the trim is ambiguous.
	for _, t := range candidates {
		if strings.EqualFold(strings.TrimSpace(t.TrimName), normalized) {
			return t
		}
	}
	return nil
}

// containsWord reports whether any whitespace-separated word of name equals
// the upper-cased token.
func containsWord(name, upperToken string) bool {
	for _, w := range strings.Fields(strings.ToUpper(name)) {
		if w == upperToken {
			return true
		}
	}
	return false
}
