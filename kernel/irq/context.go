// Package irq defines the interrupt/exception register-bank layout and the
// synchronous-exception handler registry. The teacher's version of this
// package (handler_amd64.go, interrupt_amd64.go) paired Frame/Regs types
// with HandleException/HandleExceptionWithCode functions that forwarded to
// an external amd64 IDT trampoline written in assembly; this module targets
// RISC-V and has no such trampoline in the retrieved sources; exception
// numbers and the Context register bank are regrounded on
// original_source's trap/src/arch/riscv/{mod.rs,entry.rs} instead, and
// dispatch is a plain Go map rather than an IDT.
package irq

import "rvpart/kernel/kfmt"

// Register holds the RISC-V integer register file saved across a trap,
// mirroring entry.rs's Register struct field order.
type Register struct {
	RA, SP, GP, TP                     uintptr
	T0, T1, T2                         uintptr
	S0, S1                             uintptr
	A0, A1, A2, A3, A4, A5, A6, A7     uintptr
	S2, S3, S4, S5, S6, S7, S8, S9     uintptr
	S10, S11                           uintptr
	T3, T4, T5, T6                     uintptr
}

// FRegister holds the RISC-V floating point register file, mirroring
// entry.rs's FRegister struct field order.
type FRegister struct {
	FT0, FT1, FT2, FT3, FT4, FT5, FT6, FT7 uintptr
	FS0, FS1                               uintptr
	FA0, FA1, FA2, FA3, FA4, FA5, FA6, FA7  uintptr
	FS2, FS3, FS4, FS5, FS6, FS7, FS8, FS9  uintptr
	FS10, FS11                              uintptr
	FT8, FT9, FT10, FT11                    uintptr
}

// Context is a full trap frame: the saved register file plus the
// supervisor CSRs that describe why the trap occurred. Mirrors
// original_source's Context struct.
type Context struct {
	Regs  Register
	FRegs FRegister

	SStatus uintptr
	SCause  uintptr
	SIE     uintptr
	STval   uintptr
	SEpc    uintptr
}

// Print outputs a dump of the trap frame to the active console.
func (c *Context) Print() {
	kfmt.Printf("sepc = %16x scause = %16x\n", c.SEpc, c.SCause)
	kfmt.Printf("stval = %16x sstatus = %16x\n", c.STval, c.SStatus)
	kfmt.Printf("ra = %16x sp = %16x gp = %16x\n", c.Regs.RA, c.Regs.SP, c.Regs.GP)
	kfmt.Printf("a0 = %16x a1 = %16x a2 = %16x\n", c.Regs.A0, c.Regs.A1, c.Regs.A2)
	kfmt.Printf("a7 = %16x\n", c.Regs.A7)
}
