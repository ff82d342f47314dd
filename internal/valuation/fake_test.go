package valuation

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/lotworks/vinvalue/pkg/kbb"
)

// fakeClient is an in-memory kbb.Client backed by fixture maps. Lookups that
// miss return an error, which is how per-record provider failures are staged.
type fakeClient struct {
	vinResults map[string][]kbb.TrimSummary
	makes      []kbb.Make
	models     []kbb.Model
	vehicles   []kbb.TrimSummary
	options    map[int][]kbb.VehicleOption
	applyFinal []int
	values     map[int]*kbb.Values
	valuesErr  map[int]error

	calls      int
	applyCalls int
}

func (f *fakeClient) GetVehicleByVin(_ context.Context, vin string) (*kbb.VinResult, error) {
	trims, ok := f.vinResults[vin]
	if !ok {
		return nil, eris.Errorf("kbb: vin lookup %s", vin)
	}
	f.calls++
	return &kbb.VinResult{VinResults: trims}, nil
}

func (f *fakeClient) GetMakes(context.Context, int) ([]kbb.Make, error) {
	f.calls++
	return f.makes, nil
}

func (f *fakeClient) GetModels(context.Context, int, int) ([]kbb.Model, error) {
	f.calls++
	return f.models, nil
}

func (f *fakeClient) GetVehicles(context.Context, int, int, int) ([]kbb.TrimSummary, error) {
	f.calls++
	return f.vehicles, nil
}

func (f *fakeClient) GetVehicleOptions(_ context.Context, vehicleID int) ([]kbb.VehicleOption, error) {
	f.calls++
	return f.options[vehicleID], nil
}

func (f *fakeClient) ApplyConfiguration(_ context.Context, _ []int, changes []kbb.ConfigurationChange) (*kbb.FinalConfiguration, error) {
	f.calls++
	f.applyCalls++
	final := f.applyFinal
	if final == nil {
		for _, c := range changes {
			final = append(final, c.VehicleOptionID)
		}
	}
	return &kbb.FinalConfiguration{VehicleOptionIDs: final}, nil
}

func (f *fakeClient) GetValues(_ context.Context, vehicleID int, _ []int, _ int, _ string) (*kbb.Values, error) {
	if err, ok := f.valuesErr[vehicleID]; ok {
		return nil, err
	}
	f.calls++
	if vals, ok := f.values[vehicleID]; ok {
		return vals, nil
	}
	return nil, eris.Errorf("kbb: values for vehicle %d", vehicleID)
}

func (f *fakeClient) Calls() int  { return f.calls }
func (f *fakeClient) ResetCalls() { f.calls = 0 }
