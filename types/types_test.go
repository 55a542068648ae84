package types

import "testing"

func TestRecordCSV(t *testing.T) {
	r := Record{
		Time:      "12:00:05",
		Values:    []int32{1_252_500, -16_000, 0},
		Triggered: true,
	}
	if got, want := r.CSV(), "12:00:05,1.252500,-0.016000,0.000000,1"; got != want {
		t.Fatalf("CSV = %q, want %q", got, want)
	}

	r = Record{Time: "00:00:00"}
	if got, want := r.CSV(), "00:00:00,0"; got != want {
		t.Fatalf("empty CSV = %q, want %q", got, want)
	}
}
