package main

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadScheduleScenarioSix exercises the YAML loader against spec.md's
// scenario 6 table (period 4s, A[0,1]/B[1,1]/A[2,1]/C[3,1]).
func TestLoadScheduleScenarioSix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.yaml")
	yaml := `
period: 4s
slots:
  - partition: A
    offset: 0s
    duration: 1s
  - partition: B
    offset: 1s
    duration: 1s
  - partition: A
    offset: 2s
    duration: 1s
  - partition: C
    offset: 3s
    duration: 1s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	frame, err := loadSchedule(path)
	if err != nil {
		t.Fatalf("loadSchedule: %s", err)
	}
	if len(frame.Slots()) != 4 {
		t.Fatalf("got %d slots, want 4", len(frame.Slots()))
	}
}

func TestLoadScheduleRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.yaml")
	yaml := `
period: not-a-duration
slots: []
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := loadSchedule(path); err == nil {
		t.Fatal("expected an error for an invalid period")
	}
}

func TestLoadScheduleMissingFile(t *testing.T) {
	if _, err := loadSchedule(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
