package syscall

import (
	"bytes"
	"strings"
	"testing"
	"unsafe"

	"rvpart/kernel/addr"
	"rvpart/kernel/apex"
	"rvpart/kernel/kfmt"
	"rvpart/kernel/partition"
	"rvpart/kernel/percpu"
	"rvpart/kernel/pmm"
	"rvpart/kernel/sched"
	"rvpart/kernel/task"
	"rvpart/kernel/vmm"
)

const testPages = 64

func withHostBackedMemory(t *testing.T) []byte {
	t.Helper()

	buf := make([]byte, testPages*4096)
	ptrOf := func(pa addr.PhysAddr) unsafe.Pointer {
		return unsafe.Pointer(&buf[pa.AsUintptr()])
	}
	pmm.SetPhysPointerFunc(ptrOf)
	vmm.SetPointerFunc(ptrOf)
	pmm.SetMemoryMap([]pmm.MemRegion{{PhysAddress: 0, Length: uintptr(len(buf))}}, 0, 0)

	SetPointerFunc(func(va uintptr) unsafe.Pointer { return unsafe.Pointer(&buf[va]) })

	return buf
}

func mustName(t *testing.T, s string) apex.Name {
	t.Helper()
	name, ok := apex.NewName(s)
	if !ok {
		t.Fatalf("name %q too long", s)
	}
	return name
}

// runInsidePartition drives fn from within a poll function scheduled on a
// freshly-built kernel partition's Inspector/Runtime, so CurrentPartition/
// CurrentProcess/Current resolve the way they would mid-syscall.
func runInsidePartition(t *testing.T, p *partition.Partition, fn func()) {
	t.Helper()

	percpu.Init(1)
	if err := sched.InitRuntimes(); err != nil {
		t.Fatalf("InitRuntimes: %v", err)
	}

	root, err := task.NewExecutor(0, task.NewTask(func(w *task.Waker) bool {
		fn()
		return true
	}, 0))
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}

	is := p.GenInspector(root)
	rt := sched.NewRuntime(is)
	rt.Start()
}

func newKernelPartition(t *testing.T, name string) *partition.Partition {
	t.Helper()
	p, err := partition.New(&partition.Config{
		Name:     mustName(t, name),
		Memory:   4096 * 8,
		NumCores: 1,
		Kind:     partition.KindKernel,
		Period:   1000,
		KernEntry: func() {},
	})
	if err != nil {
		t.Fatalf("partition.New: %v", err)
	}
	return p
}

func TestDispatchGetPartitionStatus(t *testing.T) {
	buf := withHostBackedMemory(t)
	p := newKernelPartition(t, "PART_A")

	const outVA = 4096
	var got uintptr
	runInsidePartition(t, p, func() {
		got = dispatch(SysGetPartitionStatus, [7]uintptr{outVA})
	})

	if apex.ReturnCode(got) != apex.NoError {
		t.Fatalf("expected NoError; got %d", got)
	}

	status := (*apex.PartitionStatus)(unsafe.Pointer(&buf[outVA]))
	if status.Identifier != p.ID() {
		t.Fatalf("expected identifier %v; got %v", p.ID(), status.Identifier)
	}
}

func TestDispatchSetPartitionModeToNormal(t *testing.T) {
	withHostBackedMemory(t)
	p := newKernelPartition(t, "PART_B")

	ranHook := false
	p.AddPreStartHook(func() { ranHook = true })

	var got uintptr
	runInsidePartition(t, p, func() {
		got = dispatch(SysSetPartitionMode, [7]uintptr{uintptr(apex.ModeNormal)})
	})

	if apex.ReturnCode(got) != apex.NoError {
		t.Fatalf("expected NoError; got %d", got)
	}
	if p.OperatingMode() != apex.ModeNormal {
		t.Fatalf("expected partition in ModeNormal; got %v", p.OperatingMode())
	}
	if !ranHook {
		t.Fatal("expected pre-start hook to run on transition to Normal")
	}
}

func TestDispatchCreateAndStartProcess(t *testing.T) {
	buf := withHostBackedMemory(t)
	p := newKernelPartition(t, "PART_C")

	const attrVA = 4096
	const idOutVA = 8192

	attr := (*apex.ProcessAttribute)(unsafe.Pointer(&buf[attrVA]))
	*attr = apex.ProcessAttribute{
		Name:         mustName(t, "PROC_1"),
		EntryPoint:   apex.SystemAddress(p.Entry().Addr),
		StackSize:    4096,
		BasePriority: 1,
		Period:       apex.TimeInfinity,
		TimeCapacity: apex.TimeInfinity,
		Deadline:     apex.DeadlineSoft,
	}

	var createRC, startRC uintptr
	runInsidePartition(t, p, func() {
		createRC = dispatch(SysCreateProcess, [7]uintptr{attrVA, idOutVA})
		if apex.ReturnCode(createRC) != apex.NoError {
			return
		}
		id := *(*apex.ProcessID)(unsafe.Pointer(&buf[idOutVA]))
		startRC = dispatch(SysStart, [7]uintptr{uintptr(id)})
	})

	if apex.ReturnCode(createRC) != apex.NoError {
		t.Fatalf("CREATE_PROCESS: expected NoError; got %d", createRC)
	}
	if apex.ReturnCode(startRC) != apex.NoError {
		t.Fatalf("START: expected NoError; got %d", startRC)
	}

	id := *(*apex.ProcessID)(unsafe.Pointer(&buf[idOutVA]))
	proc, ok := partition.FindProcessByID(p.ID(), id)
	if !ok {
		t.Fatal("expected created process to be findable")
	}
	if proc.State() != apex.StateReady {
		t.Fatalf("expected process state Ready; got %v", proc.State())
	}
}

func TestDispatchCreateProcessRejectsOversizedStack(t *testing.T) {
	buf := withHostBackedMemory(t)
	p := newKernelPartition(t, "PART_D")

	const attrVA = 4096
	const idOutVA = 8192

	attr := (*apex.ProcessAttribute)(unsafe.Pointer(&buf[attrVA]))
	*attr = apex.ProcessAttribute{
		Name:         mustName(t, "PROC_1"),
		StackSize:    apex.StackSize(p.MemoryFree()) + 4096,
		BasePriority: 1,
		Period:       apex.TimeInfinity,
		TimeCapacity: apex.TimeInfinity,
	}

	var rc uintptr
	runInsidePartition(t, p, func() {
		rc = dispatch(SysCreateProcess, [7]uintptr{attrVA, idOutVA})
	})

	if apex.ReturnCode(rc) != apex.InvalidParam {
		t.Fatalf("expected InvalidParam; got %d", rc)
	}
}

func TestDispatchRejectsNullPointer(t *testing.T) {
	withHostBackedMemory(t)
	p := newKernelPartition(t, "PART_E")

	var got uintptr
	runInsidePartition(t, p, func() {
		got = dispatch(SysGetPartitionStatus, [7]uintptr{0})
	})

	if got != invalidSyscallNumber {
		t.Fatalf("expected invalidSyscallNumber for a null out-pointer; got %d", got)
	}
}

func TestDispatchUnknownSyscallNumber(t *testing.T) {
	withHostBackedMemory(t)
	p := newKernelPartition(t, "PART_F")

	var got uintptr
	runInsidePartition(t, p, func() {
		got = dispatch(0x9999, [7]uintptr{})
	})

	if got != invalidSyscallNumber {
		t.Fatalf("expected invalidSyscallNumber; got %d", got)
	}
}

func TestDispatchDebugLogWritesPrefixedLine(t *testing.T) {
	buf := withHostBackedMemory(t)
	p := newKernelPartition(t, "PART_G")

	var out bytes.Buffer
	kfmt.SetOutputSink(&out)
	defer kfmt.SetOutputSink(nil)

	const msgVA = 4096
	msg := "hello from debug log"
	copy(buf[msgVA:], msg)

	var got uintptr
	runInsidePartition(t, p, func() {
		got = dispatch(SysDebugLog, [7]uintptr{msgVA, uintptr(len(msg))})
	})

	if apex.ReturnCode(got) != apex.NoError {
		t.Fatalf("expected NoError; got %d", got)
	}
	if !strings.Contains(out.String(), msg) {
		t.Fatalf("expected output to contain %q; got %q", msg, out.String())
	}
	if !strings.Contains(out.String(), "PART_G") {
		t.Fatalf("expected output to contain partition name; got %q", out.String())
	}
}
