package output

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		secs int64
		hms  string
		s    string
	}{
		{0, "0", "0"},
		{1, "1", "1"},
		{59, "59", "59"},
		{60, "1:00", "60"},
		{61, "1:01", "61"},
		{3599, "59:59", "3599"},
		{3600, "1:00:00", "3600"},
		{359999, "99:59:59", "359999"},
		{360000, "100:00:00", "360000"},
		{-1, "?", "?"},
		{-123456, "?", "?"},
	}

	for _, tc := range cases {
		d := time.Duration(tc.secs) * time.Second
		if got := FormatDuration(d, DurationHMS); got != tc.hms {
			t.Errorf("FormatDuration(%ds, hms) = %q, want %q", tc.secs, got, tc.hms)
		}
		if got := FormatDuration(d, DurationSecs); got != tc.s {
			t.Errorf("FormatDuration(%ds, s) = %q, want %q", tc.secs, got, tc.s)
		}
	}
}

func TestFormatDuration_TruncatesFractions(t *testing.T) {
	d := 90*time.Second + 400*time.Millisecond
	if got := FormatDuration(d, DurationHMS); got != "1:30" {
		t.Errorf("FormatDuration(90.4s, hms) = %q, want %q", got, "1:30")
	}
}

func TestParseDurationStyle(t *testing.T) {
	cases := []struct {
		in      string
		want    DurationStyle
		wantErr bool
	}{
		{"", DurationHMS, false},
		{"hms", DurationHMS, false},
		{"s", DurationSecs, false},
		{"human", DurationHMS, true},
	}

	for _, tc := range cases {
		got, err := ParseDurationStyle(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDurationStyle(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDurationStyle(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDurationStyle(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDurationStyleString(t *testing.T) {
	if got := DurationHMS.String(); got != "hms" {
		t.Errorf("DurationHMS.String() = %q, want %q", got, "hms")
	}
	if got := DurationSecs.String(); got != "s" {
		t.Errorf("DurationSecs.String() = %q, want %q", got, "s")
	}
}
