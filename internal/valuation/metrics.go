package valuation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	vehiclesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vinvalue_vehicles_processed_total",
		Help: "Vehicle records processed, including validation failures",
	})

	vehiclesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vinvalue_vehicles_matched_total",
		Help: "Vehicle records that produced at least one price",
	})

	vehicleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vinvalue_vehicle_errors_total",
		Help: "Per-record error diagnostics accumulated across batches",
	})

	lowestPricedTrims = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vinvalue_lowest_priced_trim_total",
		Help: "Vehicles valued via the lowest-priced-trim fallback",
	})

	earlyStops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vinvalue_batch_early_stops_total",
		Help: "Batches halted by the error-ratio circuit breaker",
	})
)
