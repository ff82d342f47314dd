// Package vocab translates local dealer vocabulary into the provider's
// catalog vocabulary. All transforms are pure and total: unknown tokens pass
// through unchanged.
package vocab

import "strings"

// trimAcronyms maps dealer trim abbreviations to the provider's spelling.
// Keys are upper-case; matching is case-insensitive.
var trimAcronyms = map[string]string{
	"LTD":  "Limited",
	"PREM": "Premium",
	"PKG":  "Package",
	"CONV": "Convertible",
	"CPE":  "Coupe",
	"SDN":  "Sedan",
	"HB":   "Hatchback",
	"WGN":  "Wagon",
	"TRG":  "Touring",
	"SPT":  "Sport",
	"SIG":  "Signature",
	"EDN":  "Edition",
}

// trimIgnore lists trim tokens with no counterpart in provider trim names,
// dropped before matching. Mostly body-style row noise from feed exports.
var trimIgnore = map[string]struct{}{
	"2D":   {},
	"4D":   {},
	"2DR":  {},
	"4DR":  {},
	"DR":   {},
	"USED": {},
}

// optionSynonyms maps dealer option tokens to the provider's wording. The
// replacement may be multiple words. First match wins per token.
var optionSynonyms = map[string]string{
	"MOONROOF":  "Moon Roof",
	"SUNROOF":   "Sun Roof",
	"NAV":       "Navigation",
	"PWR":       "Power",
	"HTD":       "Heated",
	"LTHR":      "Leather",
	"A/C":       "Air Conditioning",
	"AC":        "Air Conditioning",
	"ALLOYS":    "Alloy Wheels",
	"BT":        "Bluetooth",
	"CAM":       "Camera",
	"WHLS":      "Wheels",
	"STS":       "Seats",
	"AUTO":      "Automatic",
	"TRANS":     "Transmission",
	"CLIMATE":   "Climate Control",
	"KEYLESS":   "Keyless Entry",
	"CRUISE":    "Cruise Control",
	"ROOF-RACK": "Roof Rack",
}

// impliedOptions are drivetrain/engine codes that name equipment even when
// they only appear in the trim or model string, never in the options list.
var impliedOptions = map[string]struct{}{
	"AWD":    {},
	"4WD":    {},
	"4X4":    {},
	"FWD":    {},
	"RWD":    {},
	"2WD":    {},
	"V6":     {},
	"V8":     {},
	"V10":    {},
	"V12":    {},
	"I4":     {},
	"TURBO":  {},
	"DIESEL": {},
	"HYBRID": {},
	"HEMI":   {},
}

// bypassTokens are high-confidence single tokens: a unique candidate match on
// one of these is accepted without the word-majority check.
var bypassTokens = map[string]struct{}{
	"NAVIGATION": {},
	"LEATHER":    {},
	"MOONROOF":   {},
	"SUNROOF":    {},
	"BLUETOOTH":  {},
	"TOW":        {},
	"HITCH":      {},
	"TURBO":      {},
	"DIESEL":     {},
	"HYBRID":     {},
	"SUPERCHARGED": {},
}

// noiseReplacer strips punctuation that never appears consistently between
// local and provider option names. Substrings become spaces so adjoining
// words stay separate tokens.
var noiseReplacer = strings.NewReplacer(
	"w/", " ",
	",", " ",
	"(", " ",
	")", " ",
)

// NormalizeTrim expands trim acronyms and drops ignored tokens, rejoining
// with single spaces.
func NormalizeTrim(text string) string {
	var out []string
	for _, tok := range strings.Fields(text) {
		upper := strings.ToUpper(tok)
		if _, drop := trimIgnore[upper]; drop {
			continue
		}
		if repl, ok := trimAcronyms[upper]; ok {
			tok = repl
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// NormalizeOption substitutes dealer option tokens with provider wording.
func NormalizeOption(text string) string {
	var out []string
	for _, tok := range strings.Fields(text) {
		if repl, ok := optionSynonyms[strings.ToUpper(tok)]; ok {
			tok = repl
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// StripNoise removes fixed punctuation substrings from option text so
// punctuation never blocks a token match.
func StripNoise(text string) string {
	return strings.Join(strings.Fields(noiseReplacer.Replace(text)), " ")
}

// ImpliedOptions returns the tokens of trim/model text that name equipment by
// themselves (drivetrain and engine codes), in order of appearance.
func ImpliedOptions(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, tok := range strings.Fields(text) {
		upper := strings.ToUpper(tok)
		if _, ok := impliedOptions[upper]; !ok {
			continue
		}
		if _, dup := seen[upper]; dup {
			continue
		}
		seen[upper] = struct{}{}
		out = append(out, upper)
	}
	return out
}

// IsImplied reports whether the upper-cased token is an implied-option code.
func IsImplied(token string) bool {
	_, ok := impliedOptions[strings.ToUpper(token)]
	return ok
}

// IsBypass reports whether the upper-cased token is in the bypass vocabulary.
func IsBypass(token string) bool {
	_, ok := bypassTokens[strings.ToUpper(token)]
	return ok
}
