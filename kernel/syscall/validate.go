package syscall

import (
	"unsafe"

	"rvpart/kernel/config"
)

// ptrFn resolves a validated user virtual address to an accessible
// pointer. A package-level function variable, following the same
// indirection idiom as kernel/pmm's physPointerFn and kernel/vmm's ptrFn,
// so tests can point syscall argument pointers at ordinary Go-allocated
// memory instead of a real user mapping.
var ptrFn = func(va uintptr) unsafe.Pointer { return unsafe.Pointer(va) } //nolint:govet

// SetPointerFunc overrides the resolver used to turn a validated user
// pointer argument into an accessible Go pointer.
func SetPointerFunc(fn func(va uintptr) unsafe.Pointer) { ptrFn = fn }

// validUserRange reports whether [va, va+size) is non-zero, does not
// overflow, and falls entirely below the kernel-only virtual window.
// Mirrors all.rs's uptr_try_cast/uptr_try_cast_array bounds check. The
// boundary is the start of the kernel's direct-mapped RAM window
// (config.DirectMapOffset+config.PhysMemBase), the lowest kernel-only
// address on both rv32 and rv64; config.ExecutorStackRegion lies above
// it. On rv32 this is the same split as the original's usize::MAX/2; on
// rv64 the boundary lies above usize::MAX/2.
func validUserRange(va, size uintptr) bool {
	if va == 0 {
		return false
	}
	end := va + size
	if end < va {
		return false
	}
	return end <= config.DirectMapOffset+config.PhysMemBase
}

// castPtr validates va as pointing to a single T and returns it, resolved
// through ptrFn.
func castPtr[T any](va uintptr) (*T, bool) {
	var zero T
	size := unsafe.Sizeof(zero)
	if !validUserRange(va, size) {
		return nil, false
	}
	return (*T)(ptrFn(va)), true
}

// castSlice validates va as pointing to an n-element array of T and
// returns it as a slice, resolved through ptrFn.
func castSlice[T any](va uintptr, n uintptr) ([]T, bool) {
	var zero T
	elemSize := unsafe.Sizeof(zero)
	if !validUserRange(va, elemSize*n) {
		return nil, false
	}
	ptr := (*T)(ptrFn(va))
	return unsafe.Slice(ptr, n), true
}
