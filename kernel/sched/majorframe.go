package sched

import (
	"sort"
	"time"

	"rvpart/kernel"
	"rvpart/kernel/apex"
)

var (
	errFramePeriod  = &kernel.Error{Module: "sched", Message: "major frame period must be positive"}
	errSlotDuration = &kernel.Error{Module: "sched", Message: "major frame slot duration must be positive"}
	errSlotOverlap  = &kernel.Error{Module: "sched", Message: "major frame slots overlap"}
	errSlotExceeds  = &kernel.Error{Module: "sched", Message: "major frame slot exceeds period"}
)

// Slot is one partition window within a MajorFrame: the partition runs from
// Offset to Offset+Duration, measured from the frame's start.
type Slot struct {
	Partition apex.Name
	Offset    time.Duration
	Duration  time.Duration
}

// MajorFrame is the static, repeating timetable that decides which
// partition's Runtime may run on a CPU at any given instant - the outer
// layer of ARINC-653's two-level scheduling hierarchy, above the
// per-partition Inspector/Executor round robin. Grounded on spec.md's
// scenario 6 ("major frame of 4s with entries A[0,1]/A[2,1]/B[1,1]/C[3,1]").
type MajorFrame struct {
	period time.Duration
	slots  []Slot
}

// NewMajorFrame validates and builds a MajorFrame. Slots may not overlap and
// must fit entirely within period.
func NewMajorFrame(period time.Duration, slots []Slot) (*MajorFrame, *kernel.Error) {
	if period <= 0 {
		return nil, errFramePeriod
	}

	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var cursor time.Duration
	for _, s := range sorted {
		if s.Duration <= 0 {
			return nil, errSlotDuration
		}
		if s.Offset < cursor {
			return nil, errSlotOverlap
		}
		end := s.Offset + s.Duration
		if end > period {
			return nil, errSlotExceeds
		}
		cursor = end
	}

	return &MajorFrame{period: period, slots: sorted}, nil
}

// Period returns the frame's repeat period.
func (f *MajorFrame) Period() time.Duration { return f.period }

// Slots returns the frame's slots in offset order. The returned slice must
// not be mutated.
func (f *MajorFrame) Slots() []Slot { return f.slots }

// ActiveSlot returns the Slot active at elapsed time t since the frame's
// epoch, wrapping at Period. The second return is false during a gap (no
// partition scheduled at that instant).
func (f *MajorFrame) ActiveSlot(t time.Duration) (Slot, bool) {
	if f.period <= 0 {
		return Slot{}, false
	}
	phase := t % f.period
	if phase < 0 {
		phase += f.period
	}
	for _, s := range f.slots {
		if phase >= s.Offset && phase < s.Offset+s.Duration {
			return s, true
		}
	}
	return Slot{}, false
}

// NextTransition returns the elapsed time, strictly after t, at which the
// active partition next changes (a slot starts or the current one ends).
func (f *MajorFrame) NextTransition(t time.Duration) time.Duration {
	if f.period <= 0 || len(f.slots) == 0 {
		return t
	}
	phase := t % f.period
	if phase < 0 {
		phase += f.period
	}
	cycles := (t - phase) / f.period

	var candidates []time.Duration
	for _, s := range f.slots {
		candidates = append(candidates, s.Offset, s.Offset+s.Duration)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	for _, c := range candidates {
		if c > phase {
			return cycles*f.period + c
		}
	}
	return (cycles+1)*f.period + candidates[0]
}
