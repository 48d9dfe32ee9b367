package schema

import (
	"encoding/json"
	"reflect"
	"sort"
	"testing"

	"bicycle-counts/internal/models"
)

func TestRegistry_RequiredSet(t *testing.T) {
	want := []string{
		"x", "y", "object_id", "set_date", "mcd", "road", "cnt_dir",
		"from_limit", "to_limit", "type", "latitude", "longitude", "factor",
		"axle", "out_dir", "in_dir", "aadb", "county", "municipality",
		"bike_ped_group",
	}
	sort.Strings(want)

	got := NewRegistry().Required()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Required() = %v, want %v", got, want)
	}
	if len(got) != 20 {
		t.Errorf("required set has %d fields, want 20", len(got))
	}
}

func TestRegistry_OptionalFields(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"comments", "route", "program", "bike_ped_facility"} {
		field, ok := r.Lookup(name)
		if !ok {
			t.Fatalf("field %q not registered", name)
		}
		if field.Required {
			t.Errorf("field %q should be optional on create", name)
		}
	}
}

func TestRegistry_ServerManaged(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"record_num", "set_year", "global_id", "updated_at"} {
		if !r.ServerManaged(name) {
			t.Errorf("field %q should be server-managed", name)
		}
		if !r.Known(name) {
			t.Errorf("server-managed field %q should still be a known name", name)
		}
		if _, ok := r.Lookup(name); ok {
			t.Errorf("server-managed field %q should not be client-writable", name)
		}
	}

	if r.Known("velocity") {
		t.Error("unregistered field reported as known")
	}
}

func TestRegistry_EnumSets(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		field string
		want  []string
	}{
		{"cnt_dir", []string{"both", "east", "west", "north", "south"}},
		{"out_dir", []string{"E", "W", "N", "S"}},
		{"in_dir", []string{"E", "W", "N", "S"}},
		{"axle", []string{"0", "1", "1.02"}},
		{"county", []string{
			"Bucks", "Chester", "Delaware", "Montgomery", "Philadelphia",
			"Burlington", "Camden", "Gloucester", "Mercer",
		}},
	}

	for _, tt := range tests {
		field, ok := r.Lookup(tt.field)
		if !ok {
			t.Fatalf("field %q not registered", tt.field)
		}
		if !reflect.DeepEqual(field.Allowed, tt.want) {
			t.Errorf("%s allowed = %v, want %v", tt.field, field.Allowed, tt.want)
		}
	}

	if len(FacilityTypes) != 7 {
		t.Errorf("FacilityTypes has %d entries, want 7", len(FacilityTypes))
	}
}

func TestRegistry_Coerce(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name    string
		field   string
		value   interface{}
		want    interface{}
		wantErr bool
	}{
		{name: "integer", field: "aadb", value: json.Number("250"), want: int64(250)},
		{name: "float", field: "latitude", value: json.Number("39.9466"), want: 39.9466},
		{name: "integer token as float", field: "x", value: json.Number("42"), want: 42.0},
		{name: "string", field: "road", value: "Spruce St", want: "Spruce St"},
		{name: "date", field: "set_date", value: "2019-06-15", want: models.NewDate(2019, 6, 15)},
		{name: "integer from string", field: "aadb", value: "250", wantErr: true},
		{name: "unknown field", field: "speed", value: "x", wantErr: true},
		{name: "bad date", field: "set_date", value: "2019-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Coerce(tt.field, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Coerce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
