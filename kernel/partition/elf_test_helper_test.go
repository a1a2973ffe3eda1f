package partition

import (
	"bytes"
	"encoding/binary"
)

// buildTestELF assembles a minimal ELF64/RISC-V executable with a single
// PT_LOAD segment, for exercising loadProgram/loadSegment without a real
// toolchain-produced binary.
func buildTestELF(vaddr, entry uint64, flags uint32, payload []byte, memsz uint64) []byte {
	const ehdrSize = 64
	const phdrSize = 56

	var buf bytes.Buffer

	ident := []byte{0x7f, 'E', 'L', 'F', 2 /* ELFCLASS64 */, 1 /* ELFDATA2LSB */, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	buf.Write(ident)
	binary.Write(&buf, binary.LittleEndian, uint16(2))   // e_type = ET_EXEC
	binary.Write(&buf, binary.LittleEndian, uint16(243)) // e_machine = EM_RISCV
	binary.Write(&buf, binary.LittleEndian, uint32(1))   // e_version
	binary.Write(&buf, binary.LittleEndian, entry)       // e_entry
	binary.Write(&buf, binary.LittleEndian, uint64(ehdrSize)) // e_phoff
	binary.Write(&buf, binary.LittleEndian, uint64(0))   // e_shoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))   // e_flags
	binary.Write(&buf, binary.LittleEndian, uint16(ehdrSize)) // e_ehsize
	binary.Write(&buf, binary.LittleEndian, uint16(phdrSize)) // e_phentsize
	binary.Write(&buf, binary.LittleEndian, uint16(1))   // e_phnum
	binary.Write(&buf, binary.LittleEndian, uint16(0))   // e_shentsize
	binary.Write(&buf, binary.LittleEndian, uint16(0))   // e_shnum
	binary.Write(&buf, binary.LittleEndian, uint16(0))   // e_shstrndx

	dataOffset := uint64(ehdrSize + phdrSize)
	binary.Write(&buf, binary.LittleEndian, uint32(1))            // p_type = PT_LOAD
	binary.Write(&buf, binary.LittleEndian, flags)                // p_flags
	binary.Write(&buf, binary.LittleEndian, dataOffset)           // p_offset
	binary.Write(&buf, binary.LittleEndian, vaddr)                // p_vaddr
	binary.Write(&buf, binary.LittleEndian, vaddr)                // p_paddr
	binary.Write(&buf, binary.LittleEndian, uint64(len(payload))) // p_filesz
	binary.Write(&buf, binary.LittleEndian, memsz)                // p_memsz
	binary.Write(&buf, binary.LittleEndian, uint64(0x1000))       // p_align

	buf.Write(payload)

	return buf.Bytes()
}
