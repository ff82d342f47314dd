package kbb

import "github.com/shopspring/decimal"

// TypicalListingPriceTypeID identifies the Typical Listing Price entry in a
// values response. The lowest-priced-trim fallback compares trims on this
// price type.
const TypicalListingPriceTypeID = 2

// ActionSelected marks a configuration change as an option selection.
const ActionSelected = "selected"

// VinResult is the response of GET vehicle/vin/id/{vin}.
type VinResult struct {
	VinResults []TrimSummary `json:"vinResults"`
}

// TrimSummary is one provider trim candidate for a vehicle.
type TrimSummary struct {
	VehicleID      int             `json:"vehicleId"`
	TrimName       string          `json:"trimName"`
	ModelName      string          `json:"modelName"`
	MakeName       string          `json:"makeName"`
	YearID         int             `json:"yearId"`
	VehicleOptions []VehicleOption `json:"vehicleOptions"`
}

// VehicleOption is one catalog option for a specific vehicle id.
type VehicleOption struct {
	VehicleOptionID int    `json:"vehicleOptionId"`
	OptionName      string `json:"optionName"`
	IsTypical       bool   `json:"isTypical"`
	IsVinDecoded    bool   `json:"isVinDecoded"`
}

// Make is one entry of the vehicle/makes listing.
type Make struct {
	MakeID   int    `json:"makeId"`
	MakeName string `json:"makeName"`
}

// Model is one entry of the vehicle/models listing.
type Model struct {
	ModelID   int    `json:"modelId"`
	ModelName string `json:"modelName"`
}

// ConfigurationChange is one sequential option selection sent to
// vehicle/applyconfiguration. Field names follow the provider's casing.
type ConfigurationChange struct {
	Sequence        int    `json:"Sequence"`
	VehicleOptionID int    `json:"VehicleOptionId"`
	Action          string `json:"Action"`
}

// FinalConfiguration is the provider-resolved option list. The provider may
// add or drop options to satisfy dependencies; its list is authoritative.
type FinalConfiguration struct {
	VehicleOptionIDs []int `json:"vehicleOptionIds"`
}

// Values is the response of POST vehicle/values.
type Values struct {
	Prices   []Price  `json:"prices"`
	Warnings []string `json:"warnings"`
}

// Price is one priced entry of a values response.
type Price struct {
	PriceTypeID     int             `json:"priceTypeId"`
	PriceTypeName   string          `json:"priceTypeName,omitempty"`
	ConfiguredValue decimal.Decimal `json:"configuredValue"`
	OptionPrices    []OptionPrice   `json:"optionPrices,omitempty"`
}

// OptionPrice is the per-option contribution to a configured value.
type OptionPrice struct {
	VehicleOptionID int             `json:"vehicleOptionId"`
	Price           decimal.Decimal `json:"price"`
}

// PriceByType returns the price entry with the given price type id.
func (v *Values) PriceByType(priceTypeID int) (Price, bool) {
	for _, p := range v.Prices {
		if p.PriceTypeID == priceTypeID {
			return p, true
		}
	}
	return Price{}, false
}

type itemsPage[T any] struct {
	Items []T `json:"items"`
}

type applyConfigurationRequest struct {
	StartingConfiguration []int                 `json:"StartingConfiguration"`
	ConfigurationChanges  []ConfigurationChange `json:"ConfigurationChanges"`
}

type applyConfigurationResponse struct {
	FinalConfiguration FinalConfiguration `json:"finalConfiguration"`
}

type valuesRequest struct {
	Configuration valuesConfiguration `json:"configuration"`
	Mileage       int                 `json:"mileage"`
	ZipCode       string              `json:"zipCode"`
}

type valuesConfiguration struct {
	VehicleID        int   `json:"vehicleId"`
	VehicleOptionIDs []int `json:"vehicleOptionIds"`
}
