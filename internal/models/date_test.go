package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "2019-06-15", wantErr: false},
		{input: "2020-02-29", wantErr: false}, // leap year
		{input: "2019-02-29", wantErr: true},
		{input: "2019-09-31", wantErr: true},
		{input: "2019-13-01", wantErr: true},
		{input: "20190615", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		_, err := ParseDate(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(2019, time.June, 15)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2019-06-15"` {
		t.Errorf("Marshal() = %s, want \"2019-06-15\"", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.Time.Equal(d.Time) {
		t.Errorf("round trip = %v, want %v", back, d)
	}
}

func TestDate_UnmarshalRejectsBadLiterals(t *testing.T) {
	for _, input := range []string{`"2019-09-31"`, `20190615`, `"June 15"`} {
		var d Date
		if err := json.Unmarshal([]byte(input), &d); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", input)
		}
	}
}

func TestDate_Scan(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan(time.Time) error = %v", err)
	}
	if d.String() != "2019-06-15" {
		t.Errorf("scanned date = %s, want 2019-06-15", d)
	}

	if err := d.Scan([]byte("2020-02-29")); err != nil {
		t.Fatalf("Scan([]byte) error = %v", err)
	}
	if d.Year() != 2020 {
		t.Errorf("scanned year = %d, want 2020", d.Year())
	}

	if err := d.Scan(42); err == nil {
		t.Error("Scan(int) succeeded, want error")
	}
}
