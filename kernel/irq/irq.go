package irq

import "rvpart/kernel/sync"

// ExceptionNum is a RISC-V scause exception code (the interrupt bit
// stripped; trap decides interrupt-vs-exception and keeps interrupt codes
// separate, see trap.TrapReason).
type ExceptionNum uintptr

// Synchronous exception codes, matching the scause.Exception values decoded
// in original_source's trap/src/arch/riscv/mod.rs.
const (
	InstrAddrMisaligned ExceptionNum = 0
	InstrAccessFault    ExceptionNum = 1
	IllegalInstruction  ExceptionNum = 2
	Breakpoint          ExceptionNum = 3
	LoadAddrMisaligned  ExceptionNum = 4
	LoadAccessFault     ExceptionNum = 5
	StoreAddrMisaligned ExceptionNum = 6
	StoreAccessFault    ExceptionNum = 7
	UserEnvCall         ExceptionNum = 8
	InstrPageFault      ExceptionNum = 12
	LoadPageFault       ExceptionNum = 13
	StorePageFault      ExceptionNum = 15
)

// InterruptNum is a RISC-V scause interrupt cause code.
type InterruptNum uintptr

const (
	SupervisorSoftInterrupt  InterruptNum = 1
	SupervisorTimerInterrupt InterruptNum = 5
	SupervisorExternInterrupt InterruptNum = 9
)

// ExceptionHandler handles a synchronous exception. If it returns, any
// modification to ctx is propagated back to the trapped context.
type ExceptionHandler func(*Context)

var (
	mu       sync.Spinlock
	handlers = map[ExceptionNum]ExceptionHandler{}
)

// HandleException registers handler for the given exception number,
// replacing any previously registered handler.
func HandleException(num ExceptionNum, handler ExceptionHandler) {
	mu.Acquire()
	defer mu.Release()
	handlers[num] = handler
}

// Dispatch invokes the handler registered for num, if any, and reports
// whether one was found.
func Dispatch(num ExceptionNum, ctx *Context) bool {
	mu.Acquire()
	handler, ok := handlers[num]
	mu.Release()

	if !ok {
		return false
	}
	handler(ctx)
	return true
}
