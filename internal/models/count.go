package models

import (
	"time"
)

// CountRecord represents one observed bicycle count at a count site.
// Optional fields use pointers so absent values round-trip as JSON null
// and SQL NULL.
type CountRecord struct {
	RecordNum       int64    `json:"record_num" db:"record_num"`
	X               float64  `json:"x" db:"x"`
	Y               float64  `json:"y" db:"y"`
	ObjectID        int64    `json:"object_id" db:"object_id"`
	SetDate         Date     `json:"set_date" db:"set_date"`
	SetYear         int      `json:"set_year" db:"set_year"`
	Comments        *string  `json:"comments" db:"comments"`
	MCD             int64    `json:"mcd" db:"mcd"`
	Route           *int64   `json:"route" db:"route"`
	Road            string   `json:"road" db:"road"`
	CntDir          string   `json:"cnt_dir" db:"cnt_dir"`
	FromLimit       string   `json:"from_limit" db:"from_limit"`
	ToLimit         string   `json:"to_limit" db:"to_limit"`
	Type            string   `json:"type" db:"type"`
	Latitude        float64  `json:"latitude" db:"latitude"`
	Longitude       float64  `json:"longitude" db:"longitude"`
	Factor          int64    `json:"factor" db:"factor"`
	Axle            float64  `json:"axle" db:"axle"`
	OutDir          string   `json:"out_dir" db:"out_dir"`
	InDir           string   `json:"in_dir" db:"in_dir"`
	AADB            int64    `json:"aadb" db:"aadb"`
	County          string   `json:"county" db:"county"`
	Municipality    string   `json:"municipality" db:"municipality"`
	Program         *string  `json:"program" db:"program"`
	BikePedGroup    string   `json:"bike_ped_group" db:"bike_ped_group"`
	BikePedFacility *string  `json:"bike_ped_facility" db:"bike_ped_facility"`
	Geometry        *string  `json:"geometry" db:"geometry"`
	GlobalID        string   `json:"global_id" db:"global_id"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CountWithWeather is the joined read shape: a count record plus the
// weather observed on its set date. Weather columns come from a LEFT JOIN,
// so a count with no matching weather row carries nulls rather than being
// excluded.
type CountWithWeather struct {
	CountRecord
	Precipitation *float64 `json:"precipitation" db:"precipitation"`
	TempAvg       *float64 `json:"temp_avg" db:"temp_avg"`
	TempMax       *float64 `json:"temp_max" db:"temp_max"`
	TempMin       *float64 `json:"temp_min" db:"temp_min"`
}

// WeatherObservation represents one daily weather row, keyed by calendar
// date. Read-only from the API's perspective; rows are loaded by the
// ingester binary.
type WeatherObservation struct {
	Date          Date     `json:"date" db:"date"`
	Precipitation *float64 `json:"precipitation" db:"precipitation"`
	TempAvg       *float64 `json:"temp_avg" db:"temp_avg"`
	TempMax       *float64 `json:"temp_max" db:"temp_max"`
	TempMin       *float64 `json:"temp_min" db:"temp_min"`
}
