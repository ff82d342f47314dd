// Package vehicledata parses batch input into vehicle records and applies
// level-gated completeness validation before any provider call is made.
package vehicledata

import (
	"fmt"
	"strconv"
)

// Validation levels. Each level requires everything below it.
const (
	LevelIdentity = 1 // VIN or year+make+model
	LevelMileage  = 2 // + mileage
	LevelTrim     = 3 // + trim text
	LevelOptions  = 4 // + at least one option phrase
)

// Record is one locally-described vehicle. Records are immutable once handed
// to a valuation session; a record with a non-empty Errors list never reaches
// one.
type Record struct {
	ID      string   `json:"id,omitempty"`
	Vin     string   `json:"vin,omitempty"`
	Year    int      `json:"year,omitempty"`
	Make    string   `json:"make,omitempty"`
	Model   string   `json:"model,omitempty"`
	Trim    string   `json:"trim,omitempty"`
	Mileage int      `json:"mileage,omitempty"`
	Zip     string   `json:"zip,omitempty"`
	Options []string `json:"options,omitempty"`

	ValidationLevel int      `json:"validationLevel,omitempty"`
	Errors          []string `json:"errors,omitempty"`
}

// Valid reports whether the record may enter a valuation session.
func (r *Record) Valid() bool {
	return len(r.Errors) == 0
}

// Key returns the join key for batch output: VIN, else id, else the
// one-based sequence number.
func (r *Record) Key(seq int) string {
	if r.Vin != "" {
		return r.Vin
	}
	if r.ID != "" {
		return r.ID
	}
	return strconv.Itoa(seq)
}

// Validate appends an error for every completeness rule the record misses at
// its validation level.
func Validate(r *Record) {
	level := r.ValidationLevel
	if level < LevelIdentity {
		level = LevelIdentity
	}

	if r.Vin == "" && (r.Year == 0 || r.Make == "" || r.Model == "") {
		r.Errors = append(r.Errors, "record requires a vin or a year, make, and model")
	}
	if level >= LevelMileage && r.Mileage <= 0 {
		r.Errors = append(r.Errors, fmt.Sprintf("validation level %d requires mileage", level))
	}
	if level >= LevelTrim && r.Trim == "" {
		r.Errors = append(r.Errors, fmt.Sprintf("validation level %d requires trim", level))
	}
	if level >= LevelOptions && len(r.Options) == 0 {
		r.Errors = append(r.Errors, fmt.Sprintf("validation level %d requires at least one option", level))
	}
}
