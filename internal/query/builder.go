// Package query builds the parameterized read queries for the joined
// count/weather view. Every client-supplied value is bound as a $n
// parameter; nothing from the request is ever spliced into SQL text.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"bicycle-counts/internal/schema"
)

// InvalidFilterError is a client input error: a filter or coordinate value
// that cannot be used to build a query. Handlers map it to 400.
type InvalidFilterError struct {
	Param   string
	Message string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Message)
}

// selectColumns is the joined read shape: every count column plus the
// weather measures, with geometry rendered as WKT.
const selectColumns = `
	SELECT c.record_num, c.x, c.y, c.object_id, c.set_date, c.set_year,
	       c.comments, c.mcd, c.route, c.road, c.cnt_dir, c.from_limit,
	       c.to_limit, c.type, c.latitude, c.longitude, c.factor, c.axle,
	       c.out_dir, c.in_dir, c.aadb, c.county, c.municipality, c.program,
	       c.bike_ped_group, c.bike_ped_facility, ST_AsText(c.geometry) AS geometry,
	       c.global_id, c.updated_at,
	       w.precipitation, w.temp_avg, w.temp_max, w.temp_min
	FROM bicycle_counts c
	LEFT JOIN weather w ON c.set_date = w.date
`

// ListingFilters holds the recognized listing criteria as raw query-string
// values; empty means not supplied.
type ListingFilters struct {
	Facility      string
	Precipitation string
}

// Builder constructs listing and nearest-point queries. Stateless; query
// text is assembled fresh on every call.
type Builder struct {
	registry *schema.Registry
}

// NewBuilder creates a query builder over the given registry.
func NewBuilder(registry *schema.Registry) *Builder {
	return &Builder{registry: registry}
}

// Listing builds the filtered listing query. Filters are conjunctive and
// the result is always ordered by set_date ascending. An unrecognized
// facility or unparseable precipitation is a client input error reported
// before any SQL is assembled.
func (b *Builder) Listing(filters ListingFilters) (string, []interface{}, error) {
	var (
		clauses []string
		args    []interface{}
	)

	if filters.Facility != "" {
		if !recognizedFacility(filters.Facility) {
			return "", nil, &InvalidFilterError{
				Param: "facility",
				Message: fmt.Sprintf("%q is not a recognized facility type, expected one of [%s]",
					filters.Facility, strings.Join(schema.FacilityTypes, ", ")),
			}
		}
		args = append(args, filters.Facility)
		clauses = append(clauses, fmt.Sprintf("c.bike_ped_facility = $%d", len(args)))
	}

	if filters.Precipitation != "" {
		minPrecip, err := strconv.ParseFloat(filters.Precipitation, 64)
		if err != nil {
			return "", nil, &InvalidFilterError{
				Param:   "precipitation",
				Message: fmt.Sprintf("%q is not a number", filters.Precipitation),
			}
		}
		args = append(args, minPrecip)
		clauses = append(clauses, fmt.Sprintf("w.precipitation >= $%d", len(args)))
	}

	query := selectColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY c.set_date ASC"

	return query, args, nil
}

// NearestLimit is the fixed result cap for the nearest-point query.
const NearestLimit = 5

// Nearest builds the nearest-N query for a geographic point. Both
// coordinates must parse as floats; ordering is by distance from the
// SRID 4326 point (longitude, latitude) using the KNN geometry operator.
func (b *Builder) Nearest(lon, lat string) (string, []interface{}, error) {
	if lon == "" || lat == "" {
		return "", nil, &InvalidFilterError{
			Param:   "coordinates",
			Message: "both lat and lon are required",
		}
	}

	longitude, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return "", nil, &InvalidFilterError{
			Param:   "lon",
			Message: fmt.Sprintf("%q is not a number", lon),
		}
	}
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return "", nil, &InvalidFilterError{
			Param:   "lat",
			Message: fmt.Sprintf("%q is not a number", lat),
		}
	}

	query := selectColumns +
		" ORDER BY c.geometry <-> ST_SetSRID(ST_MakePoint($1, $2), 4326) LIMIT $3"
	return query, []interface{}{longitude, latitude, NearestLimit}, nil
}

// Get builds the single-record query keyed by record_num.
func (b *Builder) Get(recordNum int64) (string, []interface{}) {
	return selectColumns + " WHERE c.record_num = $1", []interface{}{recordNum}
}

func recognizedFacility(facility string) bool {
	for _, f := range schema.FacilityTypes {
		if f == facility {
			return true
		}
	}
	return false
}
