package syscall

import (
	"rvpart/kernel/apex"
	"rvpart/kernel/irq"
	"rvpart/kernel/kfmt"
	"rvpart/kernel/partition"
	"rvpart/kernel/trap"
)

// invalidSyscallNumber is written to a0 for an unrecognized syscall number
// or a failed pointer validation - both are internal errors (spec.md §7's
// InvalidSyscallNumber/InvalidVirtAddr kinds), not ApexReturnCode values,
// so they're encoded as a word outside the ApexReturnCode range (0-6)
// rather than collapsed onto one of its members.
const invalidSyscallNumber = ^uintptr(0)

var (
	partitionSvc partitionHandler
	processSvc   processHandler
)

// Halt is called for SYS_DEBUG_HALT. Left a simple function variable
// (rather than a hal package dependency, which this module doesn't carry)
// so cmd/kernel's boot path can install the real shutdown routine.
var Halt = func() {
	for {
	}
}

// Install registers Handle as the trap package's syscall handler.
func Install() { trap.SetSyscallHandler(Handle) }

// Handle services a ReasonSystemCall trap: it decodes the syscall number
// and seven word arguments from ctx's register file, dispatches to the
// partition/process service handlers, and writes the packed result back
// into a0. Grounded on syscall/src/all.rs's handle.
func Handle(ctx *irq.Context) {
	args := [7]uintptr{
		ctx.Regs.A0, ctx.Regs.A1, ctx.Regs.A2,
		ctx.Regs.A3, ctx.Regs.A4, ctx.Regs.A5, ctx.Regs.A6,
	}

	ctx.Regs.A0 = dispatch(uintptr(ctx.Regs.A7), args)
}

func dispatch(sysno uintptr, args [7]uintptr) uintptr {
	switch sysno {
	case SysGetPartitionStatus:
		result, ok := castPtr[apex.PartitionStatus](args[0])
		if !ok {
			return invalidSyscallNumber
		}
		status, rc := partitionSvc.getStatus()
		if rc == apex.NoError {
			*result = status
		}
		return uintptr(rc)

	case SysSetPartitionMode:
		return uintptr(partitionSvc.setMode(uint32(args[0])))

	case SysGetProcessID:
		name, ok := castPtr[apex.ProcessName](args[0])
		if !ok {
			return invalidSyscallNumber
		}
		result, ok := castPtr[apex.ProcessID](args[1])
		if !ok {
			return invalidSyscallNumber
		}
		id, rc := processSvc.getProcessID(*name)
		if rc == apex.NoError {
			*result = id
		}
		return uintptr(rc)

	case SysGetProcessStatus:
		id := apex.ProcessID(args[0])
		result, ok := castPtr[apex.ProcessStatus](args[1])
		if !ok {
			return invalidSyscallNumber
		}
		status, rc := processSvc.getProcessStatus(id)
		if rc == apex.NoError {
			*result = status
		}
		return uintptr(rc)

	case SysCreateProcess:
		attr, ok := castPtr[apex.ProcessAttribute](args[0])
		if !ok {
			return invalidSyscallNumber
		}
		result, ok := castPtr[apex.ProcessID](args[1])
		if !ok {
			return invalidSyscallNumber
		}
		id, rc := processSvc.create(*attr)
		if rc == apex.NoError {
			*result = id
		}
		return uintptr(rc)

	case SysStart:
		return uintptr(processSvc.start(apex.ProcessID(args[0])))

	case SysInitializeProcessCoreAffinity:
		return uintptr(processSvc.initCoreAffinity(apex.ProcessID(args[0]), apex.ProcessorCore(args[1])))

	case SysDebugLog:
		msg, ok := castSlice[byte](args[0], args[1])
		if !ok {
			return invalidSyscallNumber
		}
		debugLog(msg)
		return uintptr(apex.NoError)

	case SysDebugHalt:
		Halt()
		return uintptr(apex.NoError)

	default:
		return invalidSyscallNumber
	}
}

func debugLog(msg []byte) {
	partitionName := "<unknown>"
	if p, ok := partition.CurrentPartition(); ok {
		partitionName = p.Name().String()
	}
	processName := "<unknown>"
	if proc, ok := partition.CurrentProcess(); ok {
		processName = proc.Name().String()
	}
	kfmt.Printf("*%s|%s>> %s\n", partitionName, processName, string(msg))
}
