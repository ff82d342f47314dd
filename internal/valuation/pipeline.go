package valuation

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lotworks/vinvalue/internal/vehicledata"
	"github.com/lotworks/vinvalue/pkg/kbb"
)

// Options configures one batch run.
type Options struct {
	// Concurrency is the worker pool size.
	Concurrency int
	// Limit caps admitted records; zero means no cap.
	Limit int
	// EarlyStopRatio halts admission once ErrorsCount exceeds
	// Processed * ratio. Zero disables the breaker.
	EarlyStopRatio float64
	// Verbose adds matcher diagnostics to every result.
	Verbose bool
	// IncludePrices keeps the price lists in results; disabled they still
	// count toward Matched but are stripped from the response.
	IncludePrices bool
}

// BatchResult is the aggregate batch response plus per-record results keyed
// by VIN or id.
type BatchResult struct {
	RunID                     string             `json:"runId"`
	Processed                 int                `json:"processed"`
	Matched                   int                `json:"matched"`
	ErrorsCount               int                `json:"errorsCount"`
	TotalCallsMade            int                `json:"totalCallsMade"`
	RemainingQuota            int                `json:"remainingQuota"`
	UsedLowestPricedTrimCount int                `json:"usedLowestPricedTrimCount"`
	Vehicles                  map[string]*Result `json:"vehicles"`
}

// Pipeline fans vehicle records across a fixed-size worker pool. Workers own
// their client and session instances; the aggregate counters and the result
// map are the only shared state, mutated under one mutex.
type Pipeline struct {
	newClient func() kbb.Client
	quota     *kbb.QuotaGauge
	opts      Options
}

// NewPipeline creates a pipeline. newClient is invoked once per worker;
// implementations should share only the quota gauge.
func NewPipeline(newClient func() kbb.Client, quota *kbb.QuotaGauge, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Pipeline{newClient: newClient, quota: quota, opts: opts}
}

// Run values every admitted record and returns the aggregated batch result.
// Individual record failures never abort the batch; the error-ratio breaker
// only stops admission, letting in-flight work finish.
func (p *Pipeline) Run(ctx context.Context, records []vehicledata.Record) *BatchResult {
	res := &BatchResult{
		RunID:          uuid.NewString(),
		RemainingQuota: -1,
		Vehicles:       make(map[string]*Result, len(records)),
	}

	log := zap.L().With(zap.String("run_id", res.RunID))
	log.Info("starting batch",
		zap.Int("records", len(records)),
		zap.Int("concurrency", p.opts.Concurrency),
	)

	var mu sync.Mutex
	merge := func(key string, r *Result) {
		matched := r.Matched()
		if !p.opts.IncludePrices {
			r.Prices = nil
		}
		mu.Lock()
		defer mu.Unlock()
		res.Processed++
		res.ErrorsCount += len(r.Errors)
		res.TotalCallsMade += r.NumCallsMade
		if matched {
			res.Matched++
		}
		if r.UsedLowestPricedTrim {
			res.UsedLowestPricedTrimCount++
		}
		res.Vehicles[key] = r
		vehiclesProcessed.Inc()
		vehicleErrors.Add(float64(len(r.Errors)))
		if matched {
			vehiclesMatched.Inc()
		}
		if r.UsedLowestPricedTrim {
			lowestPricedTrims.Inc()
		}
	}

	tripped := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return p.opts.EarlyStopRatio > 0 &&
			float64(res.ErrorsCount) > float64(res.Processed)*p.opts.EarlyStopRatio
	}

	type workItem struct {
		key string
		rec vehicledata.Record
	}

	// Each worker owns one client for its lifetime, so the client's call
	// spacing persists across the records that worker processes.
	work := make(chan workItem)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < p.opts.Concurrency; w++ {
		g.Go(func() error {
			client := p.newClient()
			for item := range work {
				sess := NewSession(client, item.rec, p.opts.Verbose)
				merge(item.key, sess.Run(gctx))
			}
			return nil
		})
	}

	admitted := 0
admission:
	for i := range records {
		if p.opts.Limit > 0 && admitted >= p.opts.Limit {
			break
		}
		if tripped() {
			earlyStops.Inc()
			log.Warn("error ratio exceeded, stopping admission",
				zap.Float64("ratio", p.opts.EarlyStopRatio),
			)
			break
		}
		admitted++

		rec := records[i]
		key := rec.Key(i + 1)

		if !rec.Valid() {
			merge(key, &Result{
				ID:     rec.ID,
				Vin:    rec.Vin,
				Year:   rec.Year,
				Make:   rec.Make,
				Model:  rec.Model,
				Trim:   rec.Trim,
				Errors: rec.Errors,
			})
			continue
		}

		select {
		case work <- workItem{key: key, rec: rec}:
		case <-gctx.Done():
			break admission
		}
	}
	close(work)

	_ = g.Wait() // workers never return errors; failures live in results

	res.RemainingQuota = p.quota.Remaining()
	log.Info("batch complete",
		zap.Int("processed", res.Processed),
		zap.Int("matched", res.Matched),
		zap.Int("errors", res.ErrorsCount),
		zap.Int("calls_made", res.TotalCallsMade),
		zap.Int("remaining_quota", res.RemainingQuota),
		zap.Int("lowest_priced_trims", res.UsedLowestPricedTrimCount),
	)
	return res
}
