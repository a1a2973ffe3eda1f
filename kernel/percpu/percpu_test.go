package percpu

import "testing"

func TestCellPerCPUIsolation(t *testing.T) {
	Init(4)
	t.Cleanup(func() { Init(0) })

	cell, err := NewCell(func(cpuID int) int { return cpuID * 10 })
	if err != nil {
		t.Fatalf("NewCell: %v", err)
	}

	for cpu := 0; cpu < 4; cpu++ {
		v, err := cell.At(cpu)
		if err != nil {
			t.Fatalf("At(%d): %v", cpu, err)
		}
		if *v != cpu*10 {
			t.Fatalf("cpu %d: expected %d; got %d", cpu, cpu*10, *v)
		}
		*v += 1
	}

	// Mutations must not leak across CPUs.
	for cpu := 0; cpu < 4; cpu++ {
		v, _ := cell.At(cpu)
		if *v != cpu*10+1 {
			t.Fatalf("cpu %d: expected isolated mutation %d; got %d", cpu, cpu*10+1, *v)
		}
	}
}

func TestCellCurrentUsesCurrentCPUFunc(t *testing.T) {
	Init(2)
	t.Cleanup(func() { Init(0); SetCurrentCPUFunc(func() int { return 0 }) })

	cell, err := NewCell(func(cpuID int) int { return cpuID })
	if err != nil {
		t.Fatalf("NewCell: %v", err)
	}

	SetCurrentCPUFunc(func() int { return 1 })
	if got := *cell.Current(); got != 1 {
		t.Fatalf("expected current cell to resolve cpu 1's slot; got %d", got)
	}
}

func TestCellAtOutOfRange(t *testing.T) {
	Init(1)
	t.Cleanup(func() { Init(0) })

	cell, err := NewCell(func(int) int { return 0 })
	if err != nil {
		t.Fatalf("NewCell: %v", err)
	}
	if _, err := cell.At(5); err == nil {
		t.Fatal("expected out-of-range cpu id to error")
	}
}

func TestNewCellBeforeInit(t *testing.T) {
	Init(0)
	if _, err := NewCell(func(int) int { return 0 }); err == nil {
		t.Fatal("expected NewCell to fail before Init")
	}
}
