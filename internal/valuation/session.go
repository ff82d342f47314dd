// Package valuation drives the per-vehicle provider protocol (resolve
// vehicle, resolve options, build configuration, price) and fans a batch of
// records across a bounded worker pool.
package valuation

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lotworks/vinvalue/internal/match"
	"github.com/lotworks/vinvalue/internal/vehicledata"
	"github.com/lotworks/vinvalue/internal/vocab"
	"github.com/lotworks/vinvalue/pkg/kbb"
)

// ErrNoTrimCandidates means neither trim resolution nor the lowest-priced
// fallback found anything to price.
var ErrNoTrimCandidates = eris.New("valuation: no trim candidates to price")

// Session values one vehicle record. Sessions are single-use: every record
// gets a fresh one and all resolved state dies with it.
type Session struct {
	client  kbb.Client
	rec     vehicledata.Record
	verbose bool

	trim       *kbb.TrimSummary
	candidates []kbb.TrimSummary
	options    []kbb.VehicleOption
	matches    []match.OptionMatch
	finalIDs   []int
	usedLowest bool
	warnings   []string
	values     *kbb.Values
}

// NewSession creates a session for one record. The client must be owned by
// the calling worker; only the quota gauge behind it may be shared.
func NewSession(client kbb.Client, rec vehicledata.Record, verbose bool) *Session {
	return &Session{client: client, rec: rec, verbose: verbose}
}

// Run values the vehicle, converting any step failure into the result's
// Errors list. It always returns a best-effort partial result.
func (s *Session) Run(ctx context.Context) *Result {
	err := s.run(ctx)
	res := s.report()
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	return res
}

// RunStrict values the vehicle and propagates the first step failure to the
// caller. Used by the single-vehicle diagnostic path.
func (s *Session) RunStrict(ctx context.Context) (*Result, error) {
	if err := s.run(ctx); err != nil {
		return nil, err
	}
	return s.report(), nil
}

func (s *Session) run(ctx context.Context) error {
	s.client.ResetCalls()

	if err := s.resolveVehicle(ctx); err != nil {
		return err
	}
	if err := s.resolveOptions(ctx); err != nil {
		return err
	}
	if err := s.buildConfiguration(ctx); err != nil {
		return err
	}
	return s.price(ctx)
}

// resolveVehicle pins the record to exactly one provider vehicle id. VIN
// lookups and catalog walks both end in trim resolution; when that fails the
// session falls back to the lowest-priced candidate, an explicit
// approximation flagged on the result.
func (s *Session) resolveVehicle(ctx context.Context) error {
	if s.rec.Vin != "" {
		res, err := s.client.GetVehicleByVin(ctx, s.rec.Vin)
		if err != nil {
			return err
		}
		s.candidates = res.VinResults
	} else {
		candidates, err := s.lookupByYearMakeModel(ctx)
		if err != nil {
			return err
		}
		s.candidates = candidates
	}
	if len(s.candidates) == 0 {
		return ErrNoTrimCandidates
	}

	if t := match.ResolveTrim(s.candidates, s.rec.Trim); t != nil {
		s.trim = t
		return nil
	}
	return s.selectLowestPricedTrim(ctx)
}

// lookupByYearMakeModel walks the provider catalog down to the trim list for
// a record without a VIN.
func (s *Session) lookupByYearMakeModel(ctx context.Context) ([]kbb.TrimSummary, error) {
	makes, err := s.client.GetMakes(ctx, s.rec.Year)
	if err != nil {
		return nil, err
	}
	makeID := 0
	for _, m := range makes {
		if strings.EqualFold(strings.TrimSpace(m.MakeName), strings.TrimSpace(s.rec.Make)) {
			makeID = m.MakeID
			break
		}
	}
	if makeID == 0 {
		return nil, eris.Errorf("valuation: make %q not found for year %d", s.rec.Make, s.rec.Year)
	}

	models, err := s.client.GetModels(ctx, s.rec.Year, makeID)
	if err != nil {
		return nil, err
	}
	modelID := 0
	for _, m := range models {
		if strings.EqualFold(strings.TrimSpace(m.ModelName), strings.TrimSpace(s.rec.Model)) {
			modelID = m.ModelID
			break
		}
	}
	if modelID == 0 {
		return nil, eris.Errorf("valuation: model %q not found for %d %s", s.rec.Model, s.rec.Year, s.rec.Make)
	}

	return s.client.GetVehicles(ctx, s.rec.Year, makeID, modelID)
}

// selectLowestPricedTrim prices every candidate at zero extra options and
// keeps the one with the smallest typical listing price. Candidates that fail
// to price become warnings, not errors; an empty field is terminal.
func (s *Session) selectLowestPricedTrim(ctx context.Context) error {
	var best *kbb.TrimSummary
	var bestPrice decimal.Decimal
	for i := range s.candidates {
		cand := &s.candidates[i]
		vals, err := s.client.GetValues(ctx, cand.VehicleID, nil, s.rec.Mileage, s.rec.Zip)
		if err != nil {
			s.warnings = append(s.warnings, eris.ToString(err, false))
			continue
		}
		price, ok := vals.PriceByType(kbb.TypicalListingPriceTypeID)
		if !ok {
			continue
		}
		if best == nil || price.ConfiguredValue.LessThan(bestPrice) {
			best = cand
			bestPrice = price.ConfiguredValue
		}
	}
	if best == nil {
		return ErrNoTrimCandidates
	}

	zap.L().Debug("no unique trim match, using lowest-priced trim",
		zap.String("trim", s.rec.Trim),
		zap.String("selected", best.TrimName),
		zap.String("typical_listing_price", bestPrice.String()),
	)
	s.trim = best
	s.usedLowest = true
	return nil
}

// resolveOptions matches the record's option phrases, augmented with
// trim/model-implied tokens, against the vehicle's option catalog.
func (s *Session) resolveOptions(ctx context.Context) error {
	opts := s.trim.VehicleOptions
	if len(opts) == 0 {
		fetched, err := s.client.GetVehicleOptions(ctx, s.trim.VehicleID)
		if err != nil {
			return err
		}
		opts = fetched
	}
	s.options = opts

	phrases := make([]string, 0, len(s.rec.Options)+2)
	phrases = append(phrases, s.rec.Options...)
	phrases = append(phrases, vocab.ImpliedOptions(s.rec.Trim+" "+s.rec.Model)...)

	s.matches = match.MatchOptions(opts, phrases)
	return nil
}

// buildConfiguration replays typical, vin-decoded, and matched options as
// sequential selections. The provider resolves conflicts and dependencies;
// its returned list is adopted over anything computed locally.
func (s *Session) buildConfiguration(ctx context.Context) error {
	seen := map[int]struct{}{}
	var changes []kbb.ConfigurationChange
	add := func(id int) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		changes = append(changes, kbb.ConfigurationChange{
			Sequence:        len(changes) + 1,
			VehicleOptionID: id,
			Action:          kbb.ActionSelected,
		})
	}

	for _, o := range s.options {
		if o.IsTypical {
			add(o.VehicleOptionID)
		}
	}
	for _, o := range s.options {
		if o.IsVinDecoded {
			add(o.VehicleOptionID)
		}
	}
	for _, m := range s.matches {
		add(m.VehicleOptionID)
	}

	if len(changes) == 0 {
		return nil
	}

	final, err := s.client.ApplyConfiguration(ctx, nil, changes)
	if err != nil {
		return err
	}
	s.finalIDs = final.VehicleOptionIDs
	return nil
}

func (s *Session) price(ctx context.Context) error {
	vals, err := s.client.GetValues(ctx, s.trim.VehicleID, s.finalIDs, s.rec.Mileage, s.rec.Zip)
	if err != nil {
		return err
	}
	s.values = vals
	s.warnings = append(s.warnings, vals.Warnings...)
	return nil
}

// report assembles the result from whatever state the session reached.
func (s *Session) report() *Result {
	res := &Result{
		ID:                   s.rec.ID,
		Vin:                  s.rec.Vin,
		Year:                 s.rec.Year,
		Make:                 s.rec.Make,
		Model:                s.rec.Model,
		Trim:                 s.rec.Trim,
		Warnings:             s.warnings,
		NumCallsMade:         s.client.Calls(),
		UsedLowestPricedTrim: s.usedLowest,
	}

	if s.values != nil {
		res.Prices = s.values.Prices
		if p, ok := s.values.PriceByType(kbb.TypicalListingPriceTypeID); ok {
			v := p.ConfiguredValue
			res.ConfiguredValue = &v
		} else if len(s.values.Prices) > 0 {
			v := s.values.Prices[0].ConfiguredValue
			res.ConfiguredValue = &v
		}
	}

	if s.verbose {
		if s.trim != nil {
			res.MatchedTrim = s.trim.TrimName
		}
		for _, c := range s.candidates {
			res.AvailableTrims = append(res.AvailableTrims, c.TrimName)
		}
		res.MatchedOptions = s.matches
		for _, o := range s.options {
			res.AvailableOptions = append(res.AvailableOptions, o.OptionName)
		}
		res.FinalConfiguration = s.finalIDs
	}
	return res
}
