package validation

import (
	"encoding/json"
	"reflect"
	"sort"
	"testing"

	"bicycle-counts/internal/schema"
)

// validCreatePayload returns a payload carrying every required field plus
// the optional ones, shaped as a UseNumber JSON decode would produce.
func validCreatePayload() map[string]interface{} {
	return map[string]interface{}{
		"x":                 json.Number("2693000.5"),
		"y":                 json.Number("238000.25"),
		"object_id":         json.Number("1234"),
		"set_date":          "2019-06-15",
		"comments":          "weekday count",
		"mcd":               json.Number("3415101"),
		"route":             json.Number("9"),
		"road":              "Spruce St",
		"cnt_dir":           "both",
		"from_limit":        "4th St",
		"to_limit":          "5th St",
		"type":              "15 min volume",
		"latitude":          json.Number("39.9466"),
		"longitude":         json.Number("-75.1503"),
		"factor":            json.Number("1"),
		"axle":              json.Number("1.02"),
		"out_dir":           "E",
		"in_dir":            "W",
		"aadb":              json.Number("250"),
		"county":            "Philadelphia",
		"municipality":      "Philadelphia",
		"program":           "regional",
		"bike_ped_group":    "bicycle",
		"bike_ped_facility": "Bike Lane",
	}
}

func newValidator() *Validator {
	return NewValidator(schema.NewRegistry())
}

func TestValidate_ValidCreate(t *testing.T) {
	result := newValidator().Validate(validCreatePayload(), Create)
	if !result.OK() {
		t.Fatalf("expected valid payload, got %q", result.Message())
	}
}

func TestValidate_UnknownFields(t *testing.T) {
	for _, mode := range []Mode{Create, Update} {
		payload := validCreatePayload()
		payload["speed_limit"] = json.Number("25")
		payload["color"] = "blue"

		result := newValidator().Validate(payload, mode)

		want := []string{"color", "speed_limit"}
		if !reflect.DeepEqual(result.Unknown, want) {
			t.Errorf("mode %v: Unknown = %v, want %v", mode, result.Unknown, want)
		}
	}
}

func TestValidate_ServerManagedFieldsAreNotUnknown(t *testing.T) {
	payload := map[string]interface{}{
		"set_year":   json.Number("2019"),
		"global_id":  "abc",
		"record_num": json.Number("7"),
		"updated_at": "2019-06-15",
	}

	result := newValidator().Validate(payload, Update)
	if len(result.Unknown) != 0 {
		t.Errorf("server-managed fields flagged unknown: %v", result.Unknown)
	}
	if len(result.Bad) != 0 {
		t.Errorf("server-managed fields content-checked: %v", result.Bad)
	}
}

func TestValidate_MissingOnCreate(t *testing.T) {
	registry := schema.NewRegistry()
	required := registry.Required()

	tests := []struct {
		name   string
		remove []string
	}{
		{name: "missing road", remove: []string{"road"}},
		{name: "missing several", remove: []string{"x", "y", "set_date", "county"}},
		{name: "missing all", remove: required},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validCreatePayload()
			for _, f := range tt.remove {
				delete(payload, f)
			}

			result := newValidator().Validate(payload, Create)

			want := append([]string(nil), tt.remove...)
			sort.Strings(want)
			if !reflect.DeepEqual(result.Missing, want) {
				t.Errorf("Missing = %v, want %v", result.Missing, want)
			}
		})
	}
}

func TestValidate_NoMissingCheckOnUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"road": "Market St",
	}

	result := newValidator().Validate(payload, Update)
	if len(result.Missing) != 0 {
		t.Errorf("update mode reported missing fields: %v", result.Missing)
	}
	if !result.OK() {
		t.Errorf("partial update rejected: %q", result.Message())
	}
}

func TestValidate_CntDirEnum(t *testing.T) {
	for _, ok := range []string{"both", "east", "west", "north", "south"} {
		payload := map[string]interface{}{"cnt_dir": ok}
		result := newValidator().Validate(payload, Update)
		if len(result.Bad) != 0 {
			t.Errorf("cnt_dir %q rejected: %v", ok, result.Bad)
		}
	}

	for _, bad := range []string{"BOTH", "northeast", "", "e"} {
		payload := map[string]interface{}{"cnt_dir": bad}
		result := newValidator().Validate(payload, Update)
		if len(result.Bad) != 1 {
			t.Errorf("cnt_dir %q: Bad = %v, want exactly one entry", bad, result.Bad)
		} else if result.Bad[0].Field != "cnt_dir" {
			t.Errorf("cnt_dir %q flagged wrong field %q", bad, result.Bad[0].Field)
		}
	}
}

func TestValidate_AxleStrictEquality(t *testing.T) {
	accepted := []string{"0", "1", "1.02"}
	for _, token := range accepted {
		payload := map[string]interface{}{"axle": json.Number(token)}
		result := newValidator().Validate(payload, Update)
		if !result.OK() {
			t.Errorf("axle %s rejected: %q", token, result.Message())
		}
	}

	// Near neighbors are rejected, including 1.0, which is not the same
	// token as 1.
	rejected := []string{"1.0", "0.0", "1.2", "2", "1.020"}
	for _, token := range rejected {
		payload := map[string]interface{}{"axle": json.Number(token)}
		result := newValidator().Validate(payload, Update)
		if len(result.Bad) != 1 {
			t.Errorf("axle %s: Bad = %v, want exactly one entry", token, result.Bad)
		}
	}

	// A string axle fails the type check, not the enum check.
	result := newValidator().Validate(map[string]interface{}{"axle": "1"}, Update)
	if len(result.Bad) != 1 {
		t.Fatalf("string axle: Bad = %v, want exactly one entry", result.Bad)
	}
}

func TestValidate_DateField(t *testing.T) {
	tests := []struct {
		date string
		ok   bool
	}{
		{"2019-06-15", true},
		{"2020-02-29", true},  // leap year
		{"2019-02-29", false}, // not a leap year
		{"2019-09-31", false}, // September has 30 days
		{"15-06-2019", false},
		{"2019/06/15", false},
		{"", false},
	}

	for _, tt := range tests {
		payload := map[string]interface{}{"set_date": tt.date}
		result := newValidator().Validate(payload, Update)
		if tt.ok && len(result.Bad) != 0 {
			t.Errorf("set_date %q rejected: %v", tt.date, result.Bad)
		}
		if !tt.ok && len(result.Bad) != 1 {
			t.Errorf("set_date %q: Bad = %v, want exactly one entry", tt.date, result.Bad)
		}
	}
}

func TestValidate_TypeMismatches(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value interface{}
	}{
		{name: "string for integer", field: "aadb", value: "250"},
		{name: "float for integer", field: "factor", value: json.Number("1.5")},
		{name: "number for string", field: "road", value: json.Number("12")},
		{name: "bool for float", field: "latitude", value: true},
		{name: "null for string", field: "municipality", value: nil},
		{name: "number for date", field: "set_date", value: json.Number("20190615")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := map[string]interface{}{tt.field: tt.value}
			result := newValidator().Validate(payload, Update)
			if len(result.Bad) != 1 {
				t.Fatalf("Bad = %v, want exactly one entry", result.Bad)
			}
			if result.Bad[0].Field != tt.field {
				t.Errorf("flagged field %q, want %q", result.Bad[0].Field, tt.field)
			}
		})
	}
}

func TestResult_MessagePrecedence(t *testing.T) {
	payload := validCreatePayload()
	delete(payload, "road")
	payload["bogus"] = "x"
	payload["cnt_dir"] = "sideways"

	result := newValidator().Validate(payload, Create)

	// All three categories populated; only unknown surfaces first.
	if len(result.Unknown) == 0 || len(result.Missing) == 0 || len(result.Bad) == 0 {
		t.Fatalf("expected all categories populated, got %+v", result)
	}
	if got := result.Message(); got != "unknown fields: bogus" {
		t.Errorf("Message() = %q, want unknown fields first", got)
	}

	delete(payload, "bogus")
	result = newValidator().Validate(payload, Create)
	if got := result.Message(); got != "missing required fields: road" {
		t.Errorf("Message() = %q, want missing fields second", got)
	}

	payload["road"] = "Spruce St"
	result = newValidator().Validate(payload, Create)
	if got, want := result.Message(), "invalid fields: cnt_dir: "; len(got) < len(want) || got[:len(want)] != want {
		t.Errorf("Message() = %q, want bad-value message third", got)
	}
}
