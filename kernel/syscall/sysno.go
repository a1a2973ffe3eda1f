// Package syscall decodes a trapped syscall's number and up to seven
// word-sized arguments, validates any user pointers among them, routes the
// call to the partition/process service handlers, and packs the result
// back into the trap Context's return register. Grounded on
// original_source's syscall/src/{all.rs,partition.rs,process.rs} and
// abi/src/sysno.rs.
package syscall

// Syscall numbers, grouped by area the way abi/src/sysno.rs's def_sysno!
// macro lays them out. Only the partition/process/debug numbers are
// actually dispatched (see Handle); the rest of the areas - time, sampling
// ports, queuing ports, buffers, blackboards, semaphores, events, mutexes -
// are a registry only, matching spec's "ports, semaphores, events, etc.
// have only a syscall-number registry" scope note.
const (
	SysGetPartitionStatus = 0x1000
	SysSetPartitionMode   = 0x1001
)

const (
	SysGetProcessID = 0x2000 + iota
	SysGetProcessStatus
	SysCreateProcess
	SysSetPriority
	SysSuspendSelf
	SysSuspend
	SysResume
	SysStopSelf
	SysStop
	SysStart
	SysDelayedStart
	SysLockPreemption
	SysUnlockPreemption
	SysGetMyID
	SysInitializeProcessCoreAffinity
	SysGetMyProcessorCoreID
	SysGetMyIndex
)

const (
	SysTimedWait = 0x3000 + iota
	SysPeriodicWait
	SysGetTime
	SysReplenish
)

const (
	SysCreateSamplingPort = 0x4000 + iota
	SysWriteSamplingMessage
	SysReadSamplingMessage
	SysGetSamplingPortID
	SysGetSamplingPortStatus
)

const (
	SysCreateQueuingPort = 0x4100 + iota
	SysSendQueuingMessage
	SysReceiveQueuingMessage
	SysGetQueuingPortID
	SysGetQueuingPortStatus
	SysClearQueuingPort
)

const (
	SysCreateBuffer = 0x5000 + iota
	SysSendBuffer
	SysReceiveBuffer
	SysGetBufferID
	SysGetBufferStatus
)

const (
	SysCreateBlackboard = 0x5100 + iota
	SysDisplayBlackboard
	SysReadBlackboard
	SysClearBlackboard
	SysGetBlackboardID
	SysGetBlackboardStatus
)

const (
	SysCreateSemaphore = 0x5200 + iota
	SysWaitSemaphore
	SysSignalSemaphore
	SysGetSemaphoreID
	SysGetSemaphoreStatus
)

const (
	SysCreateEvent = 0x5300 + iota
	SysSetEvent
	SysResetEvent
	SysWaitEvent
	SysGetEventID
	SysGetEventStatus
)

const (
	SysCreateMutex = 0x5400 + iota
	SysAcquireMutex
	SysReleaseMutex
	SysResetMutex
	SysGetMutexID
	SysGetMutexStatus
	SysGetProcessMutexState
)

const (
	SysDebugLog  = 0xdbdbdbdb
	SysDebugHalt = 0xdbdbdbdc
)
