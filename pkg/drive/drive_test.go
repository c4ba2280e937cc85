package drive

import (
	"testing"
	"time"
)

func TestParseDayTitle(t *testing.T) {
	tests := []struct {
		title   string
		want    time.Time
		wantErr bool
	}{
		{title: "12 aug", want: time.Date(2025, time.August, 12, 0, 0, 0, 0, time.UTC)},
		{title: "3 June", want: time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)},
		{title: "31 july", want: time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)},
		{title: "  7 Dec  ", want: time.Date(2025, time.December, 7, 0, 0, 0, 0, time.UTC)},
		{title: "archive", wantErr: true},
		{title: "12 smarch", wantErr: true},
		{title: "0 aug", wantErr: true},
		{title: "32 aug", wantErr: true},
		{title: "12 aug extra", wantErr: true},
		{title: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseDayTitle(tt.title, 2025)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDayTitle(%q) should fail", tt.title)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDayTitle(%q) failed: %v", tt.title, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDayTitle(%q) = %s, want %s", tt.title, got, tt.want)
		}
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2025, time.August, 12, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, time.August, 12, 23, 59, 0, 0, time.UTC)
	if !sameDay(a, b) {
		t.Error("times on the same date should match regardless of clock time")
	}
	c := time.Date(2024, time.August, 12, 0, 0, 0, 0, time.UTC)
	if sameDay(a, c) {
		t.Error("same day and month in a different year should not match")
	}
}
