package syscall

import (
	"rvpart/kernel/apex"
	"rvpart/kernel/partition"
)

// partitionHandler implements the partition-service half of the syscall
// surface against the calling Executor's current partition. Grounded on
// syscall/src/partition.rs's PartitionSyscallHandler.
type partitionHandler struct{}

func (partitionHandler) getStatus() (apex.PartitionStatus, apex.ReturnCode) {
	p, ok := partition.CurrentPartition()
	if !ok {
		return apex.PartitionStatus{}, apex.InvalidConfig
	}
	return p.Status(), apex.NoError
}

// setMode mirrors PartitionSyscallHandler::set_mode. Normal->Normal returns
// NoAction and ColdStart->WarmStart returns InvalidMode; every other valid
// transition records the new mode. Only entering Normal does more: it
// resets the lock level, syncs the page table and runs the pre-start hooks.
func (partitionHandler) setMode(modeVal uint32) apex.ReturnCode {
	p, ok := partition.CurrentPartition()
	if !ok {
		return apex.InvalidConfig
	}

	mode, ok := apex.ParseOperatingMode(modeVal)
	if !ok {
		return apex.InvalidParam
	}

	current := p.OperatingMode()
	if mode == apex.ModeNormal && current == apex.ModeNormal {
		return apex.NoAction
	}
	if mode == apex.ModeWarmStart && current == apex.ModeColdStart {
		return apex.InvalidMode
	}

	p.SetOperatingMode(mode)

	if mode == apex.ModeNormal {
		p.SetLockLevel(apex.LockLevelMin)
		p.PtSync()
		p.RunPreStartHooks()
	}

	return apex.NoError
}
