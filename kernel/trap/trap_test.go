package trap

import (
	"testing"
	"time"

	"rvpart/kernel/irq"
	"rvpart/kernel/percpu"
	"rvpart/kernel/timer"
	"rvpart/kernel/vmm"
)

func TestDecodeBreakpoint(t *testing.T) {
	ctx := &irq.Context{SCause: uintptr(irq.Breakpoint), SEpc: 0x8000_1000}
	reason := Decode(ctx)
	if reason.Kind != ReasonBreakpoint {
		t.Fatalf("expected ReasonBreakpoint; got %v", reason.Kind)
	}
	if reason.Addr.AsUintptr() != 0x8000_1000 {
		t.Fatalf("expected decoded addr to be sepc; got %x", reason.Addr.AsUintptr())
	}
}

func TestDecodePageFaultCapturesPermission(t *testing.T) {
	ctx := &irq.Context{SCause: uintptr(irq.StorePageFault), STval: 0xdead0000}
	reason := Decode(ctx)
	if reason.Kind != ReasonPageFault {
		t.Fatalf("expected ReasonPageFault; got %v", reason.Kind)
	}
	if reason.Perm != vmm.PermW {
		t.Fatalf("expected write permission; got %v", reason.Perm)
	}
	if reason.Addr.AsUintptr() != 0xdead0000 {
		t.Fatalf("expected decoded addr to be stval; got %x", reason.Addr.AsUintptr())
	}
}

func TestDecodeInterruptSetsHighBit(t *testing.T) {
	ctx := &irq.Context{SCause: interruptBit | uintptr(irq.SupervisorTimerInterrupt)}
	reason := Decode(ctx)
	if reason.Kind != ReasonInterrupt {
		t.Fatalf("expected ReasonInterrupt; got %v", reason.Kind)
	}
	if reason.Code != uintptr(irq.SupervisorTimerInterrupt) {
		t.Fatalf("expected interrupt code %d; got %d", irq.SupervisorTimerInterrupt, reason.Code)
	}
}

func TestPCAdvanceAccountsForCompressedEncoding(t *testing.T) {
	ctx := &irq.Context{SEpc: 0x1000}

	isCompressedInstrFn = func(uintptr) bool { return true }
	PCAdvance(ctx)
	if ctx.SEpc != 0x1002 {
		t.Fatalf("expected +2 for compressed instruction; got %x", ctx.SEpc)
	}

	isCompressedInstrFn = func(uintptr) bool { return false }
	PCAdvance(ctx)
	if ctx.SEpc != 0x1006 {
		t.Fatalf("expected +4 for full-width instruction; got %x", ctx.SEpc)
	}
}

func TestHandleBreakpointCountsAndAdvances(t *testing.T) {
	isCompressedInstrFn = func(uintptr) bool { return false }
	before := BreakpointCount()

	ctx := &irq.Context{SCause: uintptr(irq.Breakpoint), SEpc: 0x2000}
	HandleBreakpoint(ctx)

	if BreakpointCount() != before+1 {
		t.Fatalf("expected breakpoint count to increase by 1")
	}
	if ctx.SEpc != 0x2004 {
		t.Fatalf("expected sepc advanced by 4; got %x", ctx.SEpc)
	}
}

func TestHandleTimerInterruptRetiresExpiredEvents(t *testing.T) {
	percpu.Init(1)
	timer.Init()
	SetClockFunc(func() time.Duration { return 10 * time.Second })

	fired := false
	timer.Create(1*time.Second, timer.Handler{Timeout: func() { fired = true }, Cancel: func() {}})

	HandleTimerInterrupt(&irq.Context{})

	if !fired {
		t.Fatal("expected expired timed event to fire")
	}
}

func TestHandleKernelTrapDispatchesSyscall(t *testing.T) {
	var gotNum uintptr
	SetSyscallHandler(func(ctx *irq.Context) { gotNum = SyscallNum(ctx) })

	ctx := &irq.Context{SCause: uintptr(irq.UserEnvCall)}
	ctx.Regs.A7 = 0xC0DE
	HandleKernelTrap(ctx)

	if gotNum != 0xC0DE {
		t.Fatalf("expected syscall handler to see a7=0xC0DE; got %x", gotNum)
	}
}

func TestHandleKernelTrapPanicsOnUnknownReason(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on an undecodable trap reason")
		}
	}()
	HandleKernelTrap(&irq.Context{SCause: uintptr(irq.ExceptionNum(0x7f))})
}
