// Package schema holds the static field registry for the bicycle count
// record: every client-writable field, its type, whether it is required on
// create, and its allowed-value set where one applies. The registry is
// built once at process start and is read-only afterwards, so it is safe
// to share across concurrently handled requests.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"bicycle-counts/internal/models"
)

// FieldType tags the semantic type of a count record field.
type FieldType int

const (
	Integer FieldType = iota
	Float
	String
	Date
)

// String returns the human-readable type name used in error messages.
func (t FieldType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Date:
		return "date"
	default:
		return "unknown"
	}
}

// Field describes one client-writable count record field.
type Field struct {
	Name     string
	Type     FieldType
	Required bool // required on create; updates are always partial
	// Allowed holds the enumerated value tokens where the field is
	// restricted. Numeric tokens are compared literally, so "1.0" is not
	// a member of {"0", "1", "1.02"}.
	Allowed []string
}

// Registry is the immutable field table for the count record.
type Registry struct {
	fields map[string]Field
	order  []string
}

// CntDirValues is the allowed set for the count direction field.
var CntDirValues = []string{"both", "east", "west", "north", "south"}

// CompassValues is the allowed set for the inbound/outbound direction fields.
var CompassValues = []string{"E", "W", "N", "S"}

// AxleValues is the allowed set for the axle correction factor. Membership
// is checked against the literal numeric token.
var AxleValues = []string{"0", "1", "1.02"}

// CountyValues is the allowed set for the county field: the nine counties
// covered by the count program.
var CountyValues = []string{
	"Bucks", "Chester", "Delaware", "Montgomery", "Philadelphia",
	"Burlington", "Camden", "Gloucester", "Mercer",
}

// FacilityTypes is the recognized facility vocabulary for the listing
// filter. bike_ped_facility itself is free text on write; only the query
// filter is restricted to this set.
var FacilityTypes = []string{
	"Bike Lane",
	"Buffered Bike Lane",
	"Protected Bike Lane",
	"Sharrow",
	"Shared Use Path",
	"Sidewalk",
	"None",
}

// serverManaged names fields that are assigned by the server and silently
// dropped if a client submits them.
var serverManaged = map[string]bool{
	"record_num": true,
	"set_year":   true,
	"global_id":  true,
	"updated_at": true,
}

// NewRegistry builds the count record field registry.
func NewRegistry() *Registry {
	fields := []Field{
		{Name: "x", Type: Float, Required: true},
		{Name: "y", Type: Float, Required: true},
		{Name: "object_id", Type: Integer, Required: true},
		{Name: "set_date", Type: Date, Required: true},
		{Name: "comments", Type: String},
		{Name: "mcd", Type: Integer, Required: true},
		{Name: "route", Type: Integer},
		{Name: "road", Type: String, Required: true},
		{Name: "cnt_dir", Type: String, Required: true, Allowed: CntDirValues},
		{Name: "from_limit", Type: String, Required: true},
		{Name: "to_limit", Type: String, Required: true},
		{Name: "type", Type: String, Required: true},
		{Name: "latitude", Type: Float, Required: true},
		{Name: "longitude", Type: Float, Required: true},
		{Name: "factor", Type: Integer, Required: true},
		{Name: "axle", Type: Float, Required: true, Allowed: AxleValues},
		{Name: "out_dir", Type: String, Required: true, Allowed: CompassValues},
		{Name: "in_dir", Type: String, Required: true, Allowed: CompassValues},
		{Name: "aadb", Type: Integer, Required: true},
		{Name: "county", Type: String, Required: true, Allowed: CountyValues},
		{Name: "municipality", Type: String, Required: true},
		{Name: "program", Type: String},
		{Name: "bike_ped_group", Type: String, Required: true},
		{Name: "bike_ped_facility", Type: String},
	}

	r := &Registry{
		fields: make(map[string]Field, len(fields)),
		order:  make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		r.fields[f.Name] = f
		r.order = append(r.order, f.Name)
	}
	return r
}

// Lookup returns the field definition for a name.
func (r *Registry) Lookup(name string) (Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// Known reports whether a submitted field name is acceptable: either a
// registered writable field or a server-managed one (the latter are
// dropped, not rejected).
func (r *Registry) Known(name string) bool {
	if serverManaged[name] {
		return true
	}
	_, ok := r.fields[name]
	return ok
}

// ServerManaged reports whether a field is server-assigned and therefore
// never applied from client input.
func (r *Registry) ServerManaged(name string) bool {
	return serverManaged[name]
}

// FieldNames returns all writable field names in declaration order.
func (r *Registry) FieldNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Required returns the sorted set of fields that must be present on create.
func (r *Registry) Required() []string {
	var out []string
	for _, name := range r.order {
		if r.fields[name].Required {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Coerce converts a validated submitted value into the typed Go value the
// repository binds as a SQL argument. It assumes the value already passed
// validation and returns an error only on type drift between the two.
func (r *Registry) Coerce(name string, value interface{}) (interface{}, error) {
	field, ok := r.fields[name]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", name)
	}

	switch field.Type {
	case Integer:
		num, ok := value.(json.Number)
		if !ok {
			return nil, fmt.Errorf("field %q: expected integer, got %T", name, value)
		}
		n, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		return n, nil
	case Float:
		num, ok := value.(json.Number)
		if !ok {
			return nil, fmt.Errorf("field %q: expected number, got %T", name, value)
		}
		f, err := num.Float64()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		return f, nil
	case String:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected string, got %T", name, value)
		}
		return s, nil
	case Date:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected date string, got %T", name, value)
		}
		return models.ParseDate(s)
	default:
		return nil, fmt.Errorf("field %q: unhandled type %v", name, field.Type)
	}
}
