package valuation

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotworks/vinvalue/internal/vehicledata"
	"github.com/lotworks/vinvalue/pkg/kbb"
)

// newFixtureFactory builds a client factory whose fakes price the given VINs
// and fail every other lookup.
func newFixtureFactory(pricedVins ...string) func() kbb.Client {
	return func() kbb.Client {
		vinResults := map[string][]kbb.TrimSummary{}
		values := map[int]*kbb.Values{}
		for i, vin := range pricedVins {
			id := 1000 + i
			vinResults[vin] = []kbb.TrimSummary{{VehicleID: id, TrimName: "Base"}}
			values[id] = typicalListing("10000")
		}
		return &fakeClient{
			vinResults: vinResults,
			options:    map[int][]kbb.VehicleOption{},
			values:     values,
		}
	}
}

func TestPipeline_MixedBatch(t *testing.T) {
	t.Parallel()

	var records []vehicledata.Record
	var goodVins []string
	for i := 0; i < 5; i++ {
		vin := fmt.Sprintf("GOODVIN%d", i)
		goodVins = append(goodVins, vin)
		records = append(records, vehicledata.Record{Vin: vin, Trim: "Base", Mileage: 40000})
	}
	for i := 0; i < 2; i++ {
		records = append(records, vehicledata.Record{Vin: fmt.Sprintf("BADVIN%d", i), Trim: "Base", Mileage: 40000})
	}
	for i := 0; i < 3; i++ {
		records = append(records, vehicledata.Record{
			ID:     fmt.Sprintf("inv%d", i),
			Errors: []string{"record requires a vin or a year, make, and model"},
		})
	}

	quota := kbb.NewQuotaGauge()
	p := NewPipeline(newFixtureFactory(goodVins...), quota, Options{
		Concurrency:   3,
		IncludePrices: true,
	})
	res := p.Run(context.Background(), records)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 10, res.Processed)
	assert.Equal(t, 5, res.Matched)
	assert.Equal(t, 5, res.ErrorsCount) // 2 lookup failures + 3 invalid records
	assert.Equal(t, 0, res.UsedLowestPricedTrimCount)
	assert.Len(t, res.Vehicles, 10)
	assert.Equal(t, -1, res.RemainingQuota) // fakes never observe quota headers

	good := res.Vehicles["GOODVIN0"]
	require.NotNil(t, good)
	assert.True(t, good.Matched())
	assert.Empty(t, good.Errors)

	invalid := res.Vehicles["inv0"]
	require.NotNil(t, invalid)
	assert.Len(t, invalid.Errors, 1)
	assert.Equal(t, 0, invalid.NumCallsMade) // invalid records never reach a session
}

func TestPipeline_LimitCapsAdmission(t *testing.T) {
	t.Parallel()

	var records []vehicledata.Record
	var vins []string
	for i := 0; i < 5; i++ {
		vin := fmt.Sprintf("VIN%d", i)
		vins = append(vins, vin)
		records = append(records, vehicledata.Record{Vin: vin, Trim: "Base", Mileage: 40000})
	}

	p := NewPipeline(newFixtureFactory(vins...), kbb.NewQuotaGauge(), Options{
		Concurrency:   2,
		Limit:         2,
		IncludePrices: true,
	})
	res := p.Run(context.Background(), records)

	assert.Equal(t, 2, res.Processed)
	assert.Len(t, res.Vehicles, 2)
}

func TestPipeline_EarlyStopOnErrorRatio(t *testing.T) {
	t.Parallel()

	// Invalid records merge synchronously at admission time, so the breaker
	// sees their errors before the next record is admitted.
	var records []vehicledata.Record
	for i := 0; i < 10; i++ {
		records = append(records, vehicledata.Record{
			ID:     fmt.Sprintf("inv%d", i),
			Errors: []string{"record requires a vin or a year, make, and model"},
		})
	}

	p := NewPipeline(newFixtureFactory(), kbb.NewQuotaGauge(), Options{
		Concurrency:    1,
		EarlyStopRatio: 0.2,
	})
	res := p.Run(context.Background(), records)

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.ErrorsCount)
}

func TestPipeline_ZeroRatioDisablesBreaker(t *testing.T) {
	t.Parallel()

	var records []vehicledata.Record
	for i := 0; i < 4; i++ {
		records = append(records, vehicledata.Record{
			ID:     fmt.Sprintf("inv%d", i),
			Errors: []string{"bad record"},
		})
	}

	p := NewPipeline(newFixtureFactory(), kbb.NewQuotaGauge(), Options{Concurrency: 2})
	res := p.Run(context.Background(), records)

	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 4, res.ErrorsCount)
}

func TestPipeline_PricesStrippedButStillMatched(t *testing.T) {
	t.Parallel()

	records := []vehicledata.Record{{Vin: "VIN0", Trim: "Base", Mileage: 40000}}
	p := NewPipeline(newFixtureFactory("VIN0"), kbb.NewQuotaGauge(), Options{Concurrency: 1})
	res := p.Run(context.Background(), records)

	assert.Equal(t, 1, res.Matched)
	r := res.Vehicles["VIN0"]
	require.NotNil(t, r)
	assert.Empty(t, r.Prices)
	require.NotNil(t, r.ConfiguredValue)
	assert.Equal(t, "10000", r.ConfiguredValue.String())
}

func TestPipeline_OneClientPerWorker(t *testing.T) {
	t.Parallel()

	var factoryCalls atomic.Int32
	base := newFixtureFactory("VIN0", "VIN1", "VIN2", "VIN3", "VIN4", "VIN5")
	factory := func() kbb.Client {
		factoryCalls.Add(1)
		return base()
	}

	var records []vehicledata.Record
	for i := 0; i < 6; i++ {
		records = append(records, vehicledata.Record{Vin: fmt.Sprintf("VIN%d", i), Trim: "Base", Mileage: 40000})
	}

	p := NewPipeline(factory, kbb.NewQuotaGauge(), Options{Concurrency: 2, IncludePrices: true})
	res := p.Run(context.Background(), records)

	assert.Equal(t, 6, res.Processed)
	assert.Equal(t, int32(2), factoryCalls.Load())
}

func TestPipeline_CallSpacingSpansRecords(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/vehicle/vin/id/"):
			w.Write([]byte(`{"vinResults":[{"vehicleId":1,"trimName":"Base"}]}`))
		case strings.Contains(r.URL.Path, "/vehicle/vehicleoptions"):
			w.Write([]byte(`{"items":[]}`))
		case strings.Contains(r.URL.Path, "/vehicle/values"):
			w.Write([]byte(`{"prices":[{"priceTypeId":2,"configuredValue":10000}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	gap := 30 * time.Millisecond
	quota := kbb.NewQuotaGauge()
	factory := func() kbb.Client {
		return kbb.NewClient("test-key",
			kbb.WithBaseURL(srv.URL),
			kbb.WithCallSpacing(gap),
			kbb.WithQuotaGauge(quota),
		)
	}

	records := []vehicledata.Record{
		{Vin: "VIN0", Trim: "Base", Mileage: 40000},
		{Vin: "VIN1", Trim: "Base", Mileage: 40000},
	}
	p := NewPipeline(factory, quota, Options{Concurrency: 1, IncludePrices: true})

	start := time.Now()
	res := p.Run(context.Background(), records)
	elapsed := time.Since(start)

	// Each record costs a vin lookup, an options fetch, and a values call.
	// Six calls through one worker's limiter means five enforced gaps; a
	// limiter reset between records would only enforce two per record.
	require.Equal(t, 6, res.TotalCallsMade)
	assert.Equal(t, 2, res.Matched)
	assert.GreaterOrEqual(t, elapsed, 5*gap)
}

func TestPipeline_AggregatesCallCounts(t *testing.T) {
	t.Parallel()

	records := []vehicledata.Record{
		{Vin: "VIN0", Trim: "Base", Mileage: 40000},
		{Vin: "VIN1", Trim: "Base", Mileage: 40000},
	}
	p := NewPipeline(newFixtureFactory("VIN0", "VIN1"), kbb.NewQuotaGauge(), Options{
		Concurrency:   1,
		IncludePrices: true,
	})
	res := p.Run(context.Background(), records)

	// Each record costs a vin lookup, an options fetch, and a values call.
	assert.Equal(t, 6, res.TotalCallsMade)
}
