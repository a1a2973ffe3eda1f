// Package cpu wraps the RISC-V privileged instructions the rest of the
// kernel needs as plain Go function calls, backed by a small Plan9
// assembly trampoline (cpu_riscv64.s) the same way the teacher's amd64
// build wrapped CR3/CPUID/interrupt-flag instructions in cpu_amd64.go -
// adapted here from CR3/CPUID to satp/sstatus/sfence.vma, since this
// module targets RISC-V rather than amd64.
package cpu

// EnableInterrupts sets the sstatus.SIE bit, allowing supervisor-level
// interrupts to fire.
func EnableInterrupts()

// DisableInterrupts clears the sstatus.SIE bit.
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt (WFI).
func Halt()

// FlushTLBEntry flushes the TLB entry covering virtAddr (sfence.vma).
func FlushTLBEntry(virtAddr uintptr)

// FlushTLBAll flushes every TLB entry (sfence.vma covering the whole
// address space).
func FlushTLBAll()

// WriteSatp writes value into the satp CSR, switching the root page
// table, and flushes the TLB. value must already be shifted/masked into
// satp's MODE|ASID|PPN layout.
func WriteSatp(value uintptr)

// ActiveSatp returns the current value of the satp CSR.
func ActiveSatp() uintptr
