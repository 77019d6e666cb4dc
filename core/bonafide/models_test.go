package bonafide

import (
	"testing"
	"time"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		stored string
		want   Status
	}{
		{stored: "Pending Office Approval", want: StatusPendingOffice},
		{stored: "Waiting for HOD Sign", want: StatusWaitingHODSign},
		{stored: "Signed", want: StatusSigned},
		{stored: "Collected", want: StatusCollected},
		{stored: "Rejected", want: StatusRejected},
		// legacy spellings from the old system
		{stored: "Approved by HOD", want: StatusWaitingHODSign},
		{stored: "Ready for Collection", want: StatusSigned},
	}
	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			if got := NormalizeStatus(tt.stored); got != tt.want {
				t.Errorf("NormalizeStatus(%q) = %q; want %q", tt.stored, got, tt.want)
			}
		})
	}
}

func TestStoredSpellings(t *testing.T) {
	spellings := StoredSpellings(StatusWaitingHODSign)
	if len(spellings) != 2 {
		t.Fatalf("len(spellings) = %d; want 2", len(spellings))
	}
	spellings = StoredSpellings(StatusSigned)
	if len(spellings) != 2 {
		t.Fatalf("len(spellings) = %d; want 2", len(spellings))
	}
	spellings = StoredSpellings(StatusPendingOffice)
	if len(spellings) != 1 {
		t.Fatalf("len(spellings) = %d; want 1", len(spellings))
	}
}

func TestStatus_Printable(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPendingOffice, false},
		{StatusWaitingHODSign, true},
		{StatusSigned, true},
		{StatusCollected, false},
		{StatusRejected, false},
	}
	for _, tt := range tests {
		if got := tt.status.Printable(); got != tt.want {
			t.Errorf("%q.Printable() = %v; want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, status := range []Status{StatusCollected, StatusRejected} {
		if !status.Terminal() {
			t.Errorf("%q.Terminal() = false; want true", status)
		}
	}
	for _, status := range []Status{StatusPendingOffice, StatusWaitingHODSign, StatusSigned} {
		if status.Terminal() {
			t.Errorf("%q.Terminal() = true; want false", status)
		}
	}
}

func Test_academicYear(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{name: "June rolls over", now: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), want: "2025 - 26"},
		{name: "December", now: time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), want: "2025 - 26"},
		{name: "May is still previous session", now: time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC), want: "2024 - 25"},
		{name: "January", now: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC), want: "2025 - 26"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := academicYear(tt.now); got != tt.want {
				t.Errorf("academicYear(%v) = %q; want %q", tt.now, got, tt.want)
			}
		})
	}
}

func Test_toRoman(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "I"}, {2, "II"}, {3, "III"}, {4, "IV"}, {5, "V"}, {6, "VI"}, {7, "VII"}, {8, "VIII"},
	}
	for _, tt := range tests {
		if got := toRoman(tt.n); got != tt.want {
			t.Errorf("toRoman(%d) = %q; want %q", tt.n, got, tt.want)
		}
	}
}
