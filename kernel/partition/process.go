package partition

import (
	"sync/atomic"

	"rvpart/kernel"
	"rvpart/kernel/addr"
	"rvpart/kernel/apex"
	"rvpart/kernel/config"
	"rvpart/kernel/sched"
	"rvpart/kernel/sync"
	"rvpart/kernel/task"
	"rvpart/kernel/task/fastpq"
)

// MaxPriority is the highest APEX base priority that maps onto a
// schedulable Executor priority.
const MaxPriority = apex.Priority(fastpq.MaxPriority)

var errInvalidPriority = &kernel.Error{Module: "partition", Message: "base priority out of executor priority range"}
var errPartitionNotFound = &kernel.Error{Module: "partition", Message: "unknown partition id"}

var nextProcessID uint64

func allocProcessID() apex.ProcessID { return apex.ProcessID(atomic.AddUint64(&nextProcessID, 1)) }

// Process is a single ARINC-653 process within a partition: its
// scheduling attributes plus the Executor-level stack it runs on.
// Grounded on original_source's a653/src/process.rs.
type Process struct {
	id          apex.ProcessID
	name        apex.Name
	index       *apex.ProcessIndex
	partitionID ID
	stackTop    addr.VirtAddr

	basePriority apex.Priority
	deadline     apex.Deadline
	entry        Entry
	period       apex.SystemTime
	stackSize    apex.StackSize
	timeCapacity apex.SystemTime

	stateMu         sync.Spinlock
	curPriority     apex.Priority
	deadlineTime    apex.SystemTime
	state           apex.ProcessState
	hasCoreAffinity bool
	coreAffinity    apex.ProcessorCore
}

// Config is the configuration handed to NewProcess to create a process.
type Config struct {
	Name         apex.Name
	Priority     apex.Priority
	Deadline     apex.Deadline
	Entry        Entry
	Period       apex.SystemTime
	StackSize    apex.StackSize
	TimeCapacity apex.SystemTime
}

// NewProcess creates a process within the given partition, allocating it
// a dedicated stack from the partition's stack allocator. Grounded on
// Process::new.
func NewProcess(partitionID ID, cfg *Config) (*Process, *kernel.Error) {
	p, ok := FindByID(partitionID)
	if !ok {
		return nil, errPartitionNotFound
	}

	stackTop, err := p.allocateStack(uintptr(cfg.StackSize))
	if err != nil {
		return nil, err
	}

	idx := p.nextIndexVal()

	proc := &Process{
		id:           allocProcessID(),
		name:         cfg.Name,
		partitionID:  partitionID,
		stackTop:     stackTop,
		basePriority: cfg.Priority,
		deadline:     cfg.Deadline,
		entry:        cfg.Entry,
		period:       cfg.Period,
		stackSize:    cfg.StackSize,
		timeCapacity: cfg.TimeCapacity,
		curPriority:  cfg.Priority,
		deadlineTime: apex.TimeInfinity,
		state:        apex.StateDormant,
	}
	if idx != 0 {
		pi := apex.ProcessIndex(idx)
		proc.index = &pi
	}

	p.registerProcess(proc)
	return proc, nil
}

// NewInitProcess creates the implicit "<partition-name>.i" init process
// that runs a partition's entry point at priority 0. Grounded on
// Process::new_init.
func NewInitProcess(partitionID ID) (*Process, *kernel.Error) {
	p, ok := FindByID(partitionID)
	if !ok {
		return nil, errPartitionNotFound
	}

	name, ok := apex.NewName(p.Name().String() + ".i")
	if !ok {
		return nil, &kernel.Error{Module: "partition", Message: "partition name too long for init process name"}
	}

	return NewProcess(partitionID, &Config{
		Name:         name,
		Priority:     0,
		Deadline:     apex.DeadlineSoft,
		Entry:        p.Entry(),
		Period:       apex.TimeInfinity,
		StackSize:    apex.StackSize(config.PageSize),
		TimeCapacity: apex.TimeInfinity,
	})
}

// CurrentProcess returns the process running on the currently-running
// Executor, if any. Mirrors Process::current's downcast through
// Executor::ext.
func CurrentProcess() (*Process, bool) {
	rt := sched.Current()
	if rt == nil {
		return nil, false
	}
	is, ok := rt.CurrentInspector()
	if !ok {
		return nil, false
	}
	ex, ok := is.CurrentExecutor()
	if !ok {
		return nil, false
	}
	proc, ok := ex.Ext().(*Process)
	return proc, ok
}

// FindProcessByID looks up a process within a partition by id.
func FindProcessByID(partitionID ID, id apex.ProcessID) (*Process, bool) {
	p, ok := FindByID(partitionID)
	if !ok {
		return nil, false
	}
	return p.findProcessByID(id)
}

// FindProcessByName looks up a process within a partition by name.
func FindProcessByName(partitionID ID, name apex.Name) (*Process, bool) {
	p, ok := FindByID(partitionID)
	if !ok {
		return nil, false
	}
	return p.findProcessByName(name)
}

// ID returns the process's identifier.
func (proc *Process) ID() apex.ProcessID { return proc.id }

// Name returns the process's name.
func (proc *Process) Name() apex.Name { return proc.name }

// Index returns the process's position in its partition's process table,
// or nil for the implicit init process (index 0).
func (proc *Process) Index() *apex.ProcessIndex { return proc.index }

// PartitionID returns the id of the partition that owns this process.
func (proc *Process) PartitionID() ID { return proc.partitionID }

// StackTop returns the top-of-stack address allocated to this process.
func (proc *Process) StackTop() addr.VirtAddr { return proc.stackTop }

// StackSize returns the process's configured stack size.
func (proc *Process) StackSize() apex.StackSize { return proc.stackSize }

// Entry returns the process's resolved entry point.
func (proc *Process) Entry() Entry { return proc.entry }

// Period returns the process's configured scheduling period, or
// apex.TimeInfinity for an aperiodic process.
func (proc *Process) Period() apex.SystemTime { return proc.period }

// BasePriority returns the process's configured base priority.
func (proc *Process) BasePriority() apex.Priority { return proc.basePriority }

// CoreAffinity returns the process's pinned processor core, if any.
func (proc *Process) CoreAffinity() (apex.ProcessorCore, bool) {
	proc.stateMu.Acquire()
	defer proc.stateMu.Release()
	return proc.coreAffinity, proc.hasCoreAffinity
}

// SetCoreAffinity pins the process to core, or clears the pin if ok is
// false.
func (proc *Process) SetCoreAffinity(core apex.ProcessorCore, ok bool) {
	proc.stateMu.Acquire()
	defer proc.stateMu.Release()
	proc.hasCoreAffinity = ok
	proc.coreAffinity = core
}

// CurrentPriority returns the process's current (possibly lowered/raised)
// priority.
func (proc *Process) CurrentPriority() apex.Priority {
	proc.stateMu.Acquire()
	defer proc.stateMu.Release()
	return proc.curPriority
}

// SetCurrentPriority updates the process's current priority.
func (proc *Process) SetCurrentPriority(priority apex.Priority) {
	proc.stateMu.Acquire()
	defer proc.stateMu.Release()
	proc.curPriority = priority
}

// State returns the process's current APEX process state.
func (proc *Process) State() apex.ProcessState {
	proc.stateMu.Acquire()
	defer proc.stateMu.Release()
	return proc.state
}

// SetState transitions the process's APEX process state.
func (proc *Process) SetState(state apex.ProcessState) {
	proc.stateMu.Acquire()
	defer proc.stateMu.Release()
	proc.state = state
}

// Status returns the process's current APEX status snapshot.
func (proc *Process) Status() apex.ProcessStatus {
	proc.stateMu.Acquire()
	curPriority := proc.curPriority
	deadlineTime := proc.deadlineTime
	state := proc.state
	proc.stateMu.Release()

	return apex.ProcessStatus{
		DeadlineTime:    deadlineTime,
		CurrentPriority: curPriority,
		ProcessState:    state,
		Attributes: apex.ProcessAttribute{
			Period:       proc.period,
			TimeCapacity: proc.timeCapacity,
			EntryPoint:   apex.SystemAddress(proc.entry.Addr),
			StackSize:    proc.stackSize,
			BasePriority: proc.basePriority,
			Deadline:     proc.deadline,
			Name:         proc.name,
		},
	}
}

// Release returns the process's stack to its owning partition's
// allocator. Callers must ensure the process's Executor is no longer
// scheduled before calling this.
func (proc *Process) Release() *kernel.Error {
	p, ok := FindByID(proc.partitionID)
	if !ok {
		return nil
	}
	return p.deallocateStack(proc.stackTop)
}

// GenExecutor wraps poll in a fresh Executor carrying proc as its
// extension value, scheduled at proc's base priority. Mirrors
// Process::gen_executor.
func (proc *Process) GenExecutor(poll task.PollFunc) (*task.Executor, *kernel.Error) {
	if proc.basePriority < 0 || proc.basePriority > MaxPriority {
		return nil, errInvalidPriority
	}

	t := task.NewTask(poll, fastpq.Priority(proc.basePriority))
	return task.NewExecutorWithExt(fastpq.Priority(proc.basePriority), t, proc)
}
