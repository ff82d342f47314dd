package vehicledata

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Inventory feed column headers.
const (
	colID      = "ID"
	colVin     = "VIN"
	colYear    = "YEAR"
	colMake    = "MakeName"
	colModel   = "ModelName"
	colTrim    = "BodyStyle"
	colMileage = "Mileage"
	colOption  = "OptionDescription"
)

// ReadCSV parses an inventory feed export. The feed is one row per option, so
// rows sharing a key (VIN, else ID) merge into a single record accumulating
// option descriptions. Trim text is the model name plus the body style, the
// way feeds describe a trim. Record order follows first appearance.
func ReadCSV(r io.Reader, validationLevel int) ([]Record, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "vehicledata: read csv header")
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	byKey := map[string]*Record{}
	var order []string
	seq := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "vehicledata: read csv row")
		}
		seq++

		vin := field(row, colVin)
		id := field(row, colID)
		if id == "" {
			id = strconv.Itoa(seq)
		}
		key := vin
		if key == "" {
			key = id
		}

		rec, ok := byKey[key]
		if !ok {
			rec = &Record{
				ID:              id,
				Vin:             vin,
				Make:            field(row, colMake),
				Model:           field(row, colModel),
				ValidationLevel: validationLevel,
			}
			if y := field(row, colYear); y != "" {
				if n, convErr := strconv.Atoi(y); convErr == nil {
					rec.Year = n
				}
			}
			if m := field(row, colMileage); m != "" {
				if n, convErr := strconv.Atoi(m); convErr == nil {
					rec.Mileage = n
				}
			}
			rec.Trim = strings.TrimSpace(rec.Model + " " + field(row, colTrim))
			byKey[key] = rec
			order = append(order, key)
		}
		if opt := field(row, colOption); opt != "" && !containsString(rec.Options, opt) {
			rec.Options = append(rec.Options, opt)
		}
	}

	records := make([]Record, 0, len(order))
	for _, key := range order {
		rec := byKey[key]
		Validate(rec)
		records = append(records, *rec)
	}
	return records, nil
}

// ReadJSON parses a JSON body: either a bare array of records or an object
// with a "vehicles" array.
func ReadJSON(r io.Reader, validationLevel int) ([]Record, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "vehicledata: read json body")
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		var wrapper struct {
			Vehicles []Record `json:"vehicles"`
		}
		if wrapErr := json.Unmarshal(body, &wrapper); wrapErr != nil {
			return nil, eris.Wrap(err, "vehicledata: parse json records")
		}
		records = wrapper.Vehicles
	}

	for i := range records {
		if records[i].ValidationLevel == 0 {
			records[i].ValidationLevel = validationLevel
		}
		Validate(&records[i])
	}
	return records, nil
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
