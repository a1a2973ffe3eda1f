// Package trap decodes a trapped irq.Context into a TrapReason and
// dispatches it to the right handler: breakpoint counting, the timer tick,
// software-interrupt servicing, or a registered syscall entry point.
// Grounded on original_source's trap/src/{lib.rs,breakpoint.rs,
// timer_int.rs,soft_int.rs,arch/riscv/mod.rs}. The real trap entry
// trampoline (entry.rs's trap_entry/run_user assembly, and the sscratch
// convention that tells kernel and user traps apart) is hardware
// trampoline code with no Go equivalent; HandleKernelTrap below is the
// decode-and-dispatch half that the trampoline would call into.
package trap

import (
	"sync/atomic"
	"time"

	"rvpart/kernel/addr"
	"rvpart/kernel/irq"
	"rvpart/kernel/timer"
	"rvpart/kernel/vmm"
)

// ReasonKind distinguishes the cases of TrapReason.
type ReasonKind int

const (
	ReasonInterrupt ReasonKind = iota
	ReasonSystemCall
	ReasonBreakpoint
	ReasonPageFault
	ReasonUnknown
)

// TrapReason is why a trap occurred, decoded from a Context's SCause/STval.
// Mirrors original_source's TrapReason enum.
type TrapReason struct {
	Kind ReasonKind
	Addr addr.VirtAddr
	Perm vmm.PagePerm
	Code uintptr
}

const interruptBit = uintptr(1) << (uintptrBits - 1)

// uintptrBits is the bit width of uintptr on the target word size.
const uintptrBits = 32 << (^uintptr(0) >> 63)

// Decode returns the TrapReason for ctx's SCause/STval pair.
func Decode(ctx *irq.Context) TrapReason {
	isInterrupt := ctx.SCause&interruptBit != 0
	code := ctx.SCause &^ interruptBit

	if isInterrupt {
		return TrapReason{Kind: ReasonInterrupt, Code: code}
	}

	switch irq.ExceptionNum(code) {
	case irq.UserEnvCall:
		return TrapReason{Kind: ReasonSystemCall}
	case irq.Breakpoint:
		return TrapReason{Kind: ReasonBreakpoint, Addr: addr.NewVirtAddr(ctx.SEpc)}
	case irq.LoadPageFault:
		return TrapReason{Kind: ReasonPageFault, Addr: addr.NewVirtAddr(ctx.STval), Perm: vmm.PermR}
	case irq.StorePageFault:
		return TrapReason{Kind: ReasonPageFault, Addr: addr.NewVirtAddr(ctx.STval), Perm: vmm.PermW}
	case irq.InstrPageFault:
		return TrapReason{Kind: ReasonPageFault, Addr: addr.NewVirtAddr(ctx.STval), Perm: vmm.PermX}
	default:
		return TrapReason{Kind: ReasonUnknown, Code: code}
	}
}

// isCompressedInstrFn reads whether the two low bits of the instruction at
// pc mark it as a 16-bit compressed (RVC) encoding. Indirected so tests can
// run without dereferencing real instruction memory. Only tests replace
// it; the default reports every instruction as compressed.
var isCompressedInstrFn = func(pc uintptr) bool { return true }

// PCAdvance moves SEpc past the trapped instruction, accounting for
// RVC's 16-bit encoding.
func PCAdvance(ctx *irq.Context) {
	if isCompressedInstrFn(ctx.SEpc) {
		ctx.SEpc += 2
	} else {
		ctx.SEpc += 4
	}
}

// SyscallNum returns the syscall number passed in a7, per the RISC-V Linux
// syscall ABI the original adopts.
func SyscallNum(ctx *irq.Context) uintptr { return ctx.Regs.A7 }

const (
	sstatusSUM  = uintptr(1) << 18
	sstatusSPP  = uintptr(1) << 8
	sstatusSPIE = uintptr(1) << 5
	sieSEIE     = uintptr(1) << 9
	sieSTIE     = uintptr(1) << 5
	sieSSIE     = uintptr(1) << 1
)

// UserSetup prepares ctx to resume execution in user mode at entryPoint
// with the given stack pointer, matching Context::user_setup.
func UserSetup(ctx *irq.Context, entryPoint, stackTop uintptr) {
	ctx.Regs.SP = stackTop
	ctx.SStatus = sstatusSUM | sstatusSPIE
	ctx.SEpc = entryPoint
	EnableInt(ctx)
}

// EnableInt unmasks external, timer and software interrupts in ctx's SIE.
func EnableInt(ctx *irq.Context) { ctx.SIE = sieSEIE | sieSTIE | sieSSIE }

// DisableInt masks all interrupts in ctx's SIE.
func DisableInt(ctx *irq.Context) { ctx.SIE = 0 }

var breakpointCount uint64

// HandleBreakpoint services a ReasonBreakpoint trap: it counts the
// breakpoint and advances past it.
func HandleBreakpoint(ctx *irq.Context) {
	if Decode(ctx).Kind != ReasonBreakpoint {
		panic("trap: not a breakpoint trap")
	}
	atomic.AddUint64(&breakpointCount, 1)
	PCAdvance(ctx)
}

// BreakpointCount reports how many breakpoint traps have been serviced.
func BreakpointCount() uint64 { return atomic.LoadUint64(&breakpointCount) }

var timerIntCount uint64

// nowFn resolves the current monotonic time for timer retirement. It
// stays at the zero clock unless SetClockFunc replaces it, which in this
// tree only the tests do.
var nowFn = func() time.Duration { return 0 }

// SetClockFunc overrides the monotonic clock source used by
// HandleTimerInterrupt.
func SetClockFunc(fn func() time.Duration) { nowFn = fn }

// HandleTimerInterrupt services a timer interrupt: it counts the tick and
// retires any timed events whose deadline has passed.
func HandleTimerInterrupt(ctx *irq.Context) {
	atomic.AddUint64(&timerIntCount, 1)
	timer.FireExpired(nowFn())
}

// TimerIntCount reports how many timer interrupts have been serviced.
func TimerIntCount() uint64 { return atomic.LoadUint64(&timerIntCount) }

var softIntCount uint64

// clearSoftIntFn is the hook for clearing the pending software-interrupt
// CSR bit. Nothing in this tree replaces it, so it is a no-op.
var clearSoftIntFn = func() {}

// HandleSoftwareInterrupt services an inter-CPU doorbell interrupt.
func HandleSoftwareInterrupt(ctx *irq.Context) {
	atomic.AddUint64(&softIntCount, 1)
	clearSoftIntFn()
}

// SoftIntCount reports how many software interrupts have been serviced.
func SoftIntCount() uint64 { return atomic.LoadUint64(&softIntCount) }

// SyscallHandler services a ReasonSystemCall trap.
type SyscallHandler func(ctx *irq.Context)

var syscallHandler SyscallHandler

// SetSyscallHandler installs the handler invoked for ReasonSystemCall
// traps. kernel/syscall installs its dispatcher here at boot.
func SetSyscallHandler(h SyscallHandler) { syscallHandler = h }

// HandleKernelTrap is the decode-and-dispatch step the trap trampoline
// calls into on every trap, mirroring arch/riscv/mod.rs's
// handle_kern_trap. Unrecognized traps panic, matching the original's
// unimplemented!().
func HandleKernelTrap(ctx *irq.Context) {
	switch reason := Decode(ctx); reason.Kind {
	case ReasonBreakpoint:
		HandleBreakpoint(ctx)
	case ReasonInterrupt:
		switch irq.InterruptNum(reason.Code) {
		case irq.SupervisorSoftInterrupt:
			HandleSoftwareInterrupt(ctx)
		case irq.SupervisorTimerInterrupt:
			HandleTimerInterrupt(ctx)
		default:
			panic("trap: unhandled interrupt")
		}
	case ReasonSystemCall:
		if syscallHandler == nil {
			panic("trap: no syscall handler installed")
		}
		syscallHandler(ctx)
	case ReasonPageFault:
		if !irq.Dispatch(irq.LoadPageFault, ctx) && !irq.Dispatch(irq.StorePageFault, ctx) && !irq.Dispatch(irq.InstrPageFault, ctx) {
			panic("trap: unhandled page fault")
		}
	default:
		panic("trap: unhandled trap reason")
	}
}
