package query

import (
	"errors"
	"strings"
	"testing"

	"bicycle-counts/internal/schema"
)

func newTestBuilder() *Builder {
	return NewBuilder(schema.NewRegistry())
}

func TestListing_NoFilters(t *testing.T) {
	sqlText, args, err := newTestBuilder().Listing(ListingFilters{})
	if err != nil {
		t.Fatalf("Listing() error = %v", err)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
	if strings.Contains(sqlText, "WHERE") {
		t.Errorf("unfiltered query should have no WHERE clause:\n%s", sqlText)
	}
	if !strings.Contains(sqlText, "ORDER BY c.set_date ASC") {
		t.Errorf("listing must order by set_date ascending:\n%s", sqlText)
	}
	if !strings.Contains(sqlText, "LEFT JOIN weather") {
		t.Errorf("listing must left-join weather:\n%s", sqlText)
	}
}

func TestListing_FacilityFilter(t *testing.T) {
	sqlText, args, err := newTestBuilder().Listing(ListingFilters{Facility: "Bike Lane"})
	if err != nil {
		t.Fatalf("Listing() error = %v", err)
	}
	if !strings.Contains(sqlText, "c.bike_ped_facility = $1") {
		t.Errorf("facility filter must be bound as $1:\n%s", sqlText)
	}
	if strings.Contains(sqlText, "Bike Lane") {
		t.Errorf("facility value interpolated into SQL text:\n%s", sqlText)
	}
	if len(args) != 1 || args[0] != "Bike Lane" {
		t.Errorf("args = %v, want [Bike Lane]", args)
	}
}

func TestListing_UnrecognizedFacility(t *testing.T) {
	_, _, err := newTestBuilder().Listing(ListingFilters{Facility: "Hoverboard Track"})

	var invalid *InvalidFilterError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidFilterError", err)
	}
	if invalid.Param != "facility" {
		t.Errorf("Param = %q, want facility", invalid.Param)
	}
}

func TestListing_PrecipitationFilter(t *testing.T) {
	sqlText, args, err := newTestBuilder().Listing(ListingFilters{Precipitation: "0.25"})
	if err != nil {
		t.Fatalf("Listing() error = %v", err)
	}
	if !strings.Contains(sqlText, "w.precipitation >= $1") {
		t.Errorf("precipitation filter must be bound as $1:\n%s", sqlText)
	}
	if len(args) != 1 || args[0] != 0.25 {
		t.Errorf("args = %v, want [0.25]", args)
	}
}

func TestListing_BadPrecipitation(t *testing.T) {
	for _, bad := range []string{"wet", "0.2.5", "--1"} {
		_, _, err := newTestBuilder().Listing(ListingFilters{Precipitation: bad})

		var invalid *InvalidFilterError
		if !errors.As(err, &invalid) {
			t.Errorf("precipitation %q: error = %v, want InvalidFilterError", bad, err)
		}
	}
}

func TestListing_CombinedFilters(t *testing.T) {
	sqlText, args, err := newTestBuilder().Listing(ListingFilters{
		Facility:      "Sharrow",
		Precipitation: "1",
	})
	if err != nil {
		t.Fatalf("Listing() error = %v", err)
	}
	if !strings.Contains(sqlText, "c.bike_ped_facility = $1 AND w.precipitation >= $2") {
		t.Errorf("filters must be conjunctive with sequential placeholders:\n%s", sqlText)
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want two bound values", args)
	}
}

func TestNearest(t *testing.T) {
	sqlText, args, err := newTestBuilder().Nearest("-75.17", "39.95")
	if err != nil {
		t.Fatalf("Nearest() error = %v", err)
	}
	if !strings.Contains(sqlText, "ST_SetSRID(ST_MakePoint($1, $2), 4326)") {
		t.Errorf("nearest query must bind the point coordinates:\n%s", sqlText)
	}
	if !strings.Contains(sqlText, "LIMIT $3") {
		t.Errorf("nearest query must bind the result cap:\n%s", sqlText)
	}
	if len(args) != 3 || args[0] != -75.17 || args[1] != 39.95 || args[2] != NearestLimit {
		t.Errorf("args = %v, want [-75.17 39.95 %d]", args, NearestLimit)
	}
}

func TestNearest_BadCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat string
	}{
		{name: "missing both", lon: "", lat: ""},
		{name: "missing lat", lon: "-75.17", lat: ""},
		{name: "missing lon", lon: "", lat: "39.95"},
		{name: "text lon", lon: "west", lat: "39.95"},
		{name: "text lat", lon: "-75.17", lat: "north"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newTestBuilder().Nearest(tt.lon, tt.lat)

			var invalid *InvalidFilterError
			if !errors.As(err, &invalid) {
				t.Errorf("error = %v, want InvalidFilterError", err)
			}
		})
	}
}

func TestGet(t *testing.T) {
	sqlText, args := newTestBuilder().Get(42)
	if !strings.Contains(sqlText, "c.record_num = $1") {
		t.Errorf("get query must bind record_num:\n%s", sqlText)
	}
	if len(args) != 1 || args[0] != int64(42) {
		t.Errorf("args = %v, want [42]", args)
	}
}
