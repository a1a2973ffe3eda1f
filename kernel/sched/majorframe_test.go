package sched

import (
	"testing"
	"time"

	"rvpart/kernel/apex"
)

func mustFrameName(t *testing.T, s string) apex.Name {
	t.Helper()
	n, ok := apex.NewName(s)
	if !ok {
		t.Fatalf("name %q too long", s)
	}
	return n
}

// TestMajorFrameScenarioSix drives the exact timetable from spec.md's
// scenario 6: period 4s, A[0,1]/A[2,1]/B[1,1]/C[3,1], and asserts the
// partition active at each second of an 8s run matches the documented
// transition sequence A,B,A,C,A,B,A,C.
func TestMajorFrameScenarioSix(t *testing.T) {
	a := mustFrameName(t, "A")
	b := mustFrameName(t, "B")
	c := mustFrameName(t, "C")

	frame, err := NewMajorFrame(4*time.Second, []Slot{
		{Partition: a, Offset: 0, Duration: time.Second},
		{Partition: b, Offset: time.Second, Duration: time.Second},
		{Partition: a, Offset: 2 * time.Second, Duration: time.Second},
		{Partition: c, Offset: 3 * time.Second, Duration: time.Second},
	})
	if err != nil {
		t.Fatalf("NewMajorFrame: %s", err.Error())
	}

	want := []apex.Name{a, b, a, c, a, b, a, c}
	for i, expect := range want {
		elapsed := time.Duration(i) * time.Second
		got, ok := frame.ActiveSlot(elapsed)
		if !ok {
			t.Fatalf("elapsed %s: no active slot", elapsed)
		}
		if got.Partition != expect {
			t.Fatalf("elapsed %s: got %s, want %s", elapsed, got.Partition.String(), expect.String())
		}
	}
}

func TestMajorFrameRejectsOverlappingSlots(t *testing.T) {
	a := mustFrameName(t, "A")
	b := mustFrameName(t, "B")

	_, err := NewMajorFrame(4*time.Second, []Slot{
		{Partition: a, Offset: 0, Duration: 2 * time.Second},
		{Partition: b, Offset: time.Second, Duration: time.Second},
	})
	if err == nil {
		t.Fatal("expected overlap error, got nil")
	}
}

func TestMajorFrameRejectsSlotExceedingPeriod(t *testing.T) {
	a := mustFrameName(t, "A")

	_, err := NewMajorFrame(2*time.Second, []Slot{
		{Partition: a, Offset: time.Second, Duration: 2 * time.Second},
	})
	if err == nil {
		t.Fatal("expected exceeds-period error, got nil")
	}
}

func TestMajorFrameGapReportsNoActiveSlot(t *testing.T) {
	a := mustFrameName(t, "A")

	frame, err := NewMajorFrame(4*time.Second, []Slot{
		{Partition: a, Offset: 0, Duration: time.Second},
	})
	if err != nil {
		t.Fatalf("NewMajorFrame: %s", err.Error())
	}

	if _, ok := frame.ActiveSlot(2 * time.Second); ok {
		t.Fatal("expected no active slot during gap")
	}
}

func TestMajorFrameNextTransitionWrapsAcrossPeriod(t *testing.T) {
	a := mustFrameName(t, "A")

	frame, err := NewMajorFrame(4*time.Second, []Slot{
		{Partition: a, Offset: 0, Duration: time.Second},
	})
	if err != nil {
		t.Fatalf("NewMajorFrame: %s", err.Error())
	}

	next := frame.NextTransition(3500 * time.Millisecond)
	if next != 4*time.Second {
		t.Fatalf("got %s, want %s", next, 4*time.Second)
	}
}
