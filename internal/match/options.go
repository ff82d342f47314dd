package match

import (
	"strings"

	"github.com/lotworks/vinvalue/internal/vocab"
	"github.com/lotworks/vinvalue/pkg/kbb"
)

// acceptThreshold is the share of a candidate's name words that must match
// before a unique candidate is accepted. Requiring a strict majority of the
// candidate's words (not the phrase's) keeps a single common word like
// "Package" from producing a false positive.
const acceptThreshold = 0.51

// OptionMatch pairs a local option phrase with the provider option it
// resolved to.
type OptionMatch struct {
	Phrase          string `json:"phrase"`
	VehicleOptionID int    `json:"vehicleOptionId"`
	OptionName      string `json:"optionName"`
}

// candidate is a provider option with its name pre-split for word matching.
type candidate struct {
	opt   *kbb.VehicleOption
	words map[string]struct{}
	count int
}

// MatchOptions resolves each local phrase to at most one provider option.
// Phrases are matched independently against the full option set; unmatched
// phrases are dropped silently. The result is deduplicated by option id, so
// it is stable under permutation of the input phrases.
func MatchOptions(options []kbb.VehicleOption, phrases []string) []OptionMatch {
	all := make([]candidate, 0, len(options))
	for i := range options {
		stripped := vocab.StripNoise(options[i].OptionName)
		words := map[string]struct{}{}
		for _, w := range strings.Fields(strings.ToUpper(stripped)) {
			words[w] = struct{}{}
		}
		all = append(all, candidate{
			opt:   &options[i],
			words: words,
			count: len(words),
		})
	}

	var out []OptionMatch
	matched := map[int]struct{}{}
	for _, phrase := range phrases {
		m, ok := matchPhrase(all, phrase)
		if !ok {
			continue
		}
		if _, dup := matched[m.VehicleOptionID]; dup {
			continue
		}
		matched[m.VehicleOptionID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// matchPhrase runs word elimination for one phrase against the full option
// set. Each token filters the candidates; a token matching nothing is a
// no-op. A token that isolates exactly one candidate counts toward the match
// total and accepts immediately when the token is in the bypass or implied
// vocabulary, or the running match count clears the majority threshold of
// the candidate's own word count.
func matchPhrase(all []candidate, phrase string) (OptionMatch, bool) {
	text := vocab.NormalizeOption(vocab.StripNoise(phrase))
	tokens := strings.Fields(strings.ToUpper(text))
	if len(tokens) == 0 {
		return OptionMatch{}, false
	}

	candidates := all
	matches := 0
	for _, token := range tokens {
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if _, ok := c.words[token]; ok {
				filtered = append(filtered, c)
			}
		}
		switch len(filtered) {
		case 0:
			// No candidate carries this word; pretend the token never
			// happened rather than discarding the match opportunity.
			continue
		case 1:
			matches++
			c := filtered[0]
			if vocab.IsBypass(token) || vocab.IsImplied(token) ||
				float64(matches)/float64(c.count) > acceptThreshold {
				return OptionMatch{
					Phrase:          phrase,
					VehicleOptionID: c.opt.VehicleOptionID,
					OptionName:      c.opt.OptionName,
				}, true
			}
			// Unique but not yet confident; keep scanning without
			// committing to this candidate.
		default:
			matches++
			candidates = filtered
		}
	}
	return OptionMatch{}, false
}
