package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTaskMarshalsAbsentDueAsNull(t *testing.T) {
	raw, err := json.Marshal(Task{ID: "a1", Text: "Send the deck", Priority: PriorityMedium})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"due":null`) {
		t.Errorf("serialized task = %s, want a null due key", raw)
	}

	raw, err = json.Marshal(Task{ID: "a2", Text: "Plan offsite", Priority: PriorityMedium, Due: NewDue("2026-09-01")})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"due":"2026-09-01"`) {
		t.Errorf("serialized task = %s, want the due date", raw)
	}
}

func TestDueValue(t *testing.T) {
	if got := (Task{}).DueValue(); got != "" {
		t.Errorf("DueValue on no deadline = %q", got)
	}
	if got := (Task{Due: NewDue("2026-09-01")}).DueValue(); got != "2026-09-01" {
		t.Errorf("DueValue = %q", got)
	}
	if NewDue("") != nil {
		t.Error("NewDue of empty string must be nil")
	}
}

func TestBucketFor(t *testing.T) {
	today := time.Date(2026, time.August, 24, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		due  string
		want string
	}{
		{"", BucketToday},
		{"2026-08-24", BucketToday},
		{"2026-08-20", BucketToday},
		{"2026-08-25", BucketLongterm},
	}
	for _, tc := range cases {
		if got := BucketFor(tc.due, today); got != tc.want {
			t.Errorf("BucketFor(%q) = %q, want %q", tc.due, got, tc.want)
		}
	}
}
