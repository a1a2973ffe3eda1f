package uprog

import (
	"bytes"
	"fmt"
	"testing"
)

// buildArchive assembles a minimal CPIO-NEWC byte stream for the given
// name/content pairs, terminated by the standard TRAILER!!! record.
func buildArchive(files map[string][]byte, order []string) []byte {
	var buf bytes.Buffer
	write := func(name string, data []byte) {
		nameSize := len(name) + 1
		header := fmt.Sprintf("070701%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x",
			0, 0, 0, 0, 1, 0, len(data), 0, 0, 0, 0, nameSize, 0)
		buf.WriteString(header)
		buf.WriteString(name)
		buf.WriteByte(0)
		padTo4(&buf)
		buf.Write(data)
		padTo4(&buf)
	}
	for _, name := range order {
		write(name, files[name])
	}
	write(newcTrailer, nil)
	return buf.Bytes()
}

func padTo4(buf *bytes.Buffer) {
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}

func TestAllListsEntriesInOrder(t *testing.T) {
	files := map[string][]byte{
		"init":   []byte("init-elf-bytes"),
		"shell":  []byte("shell-elf-bytes"),
		"logger": []byte("logger-elf-bytes"),
	}
	order := []string{"init", "shell", "logger"}
	archive := buildArchive(files, order)

	entries := All(archive)
	if len(entries) != len(order) {
		t.Fatalf("got %d entries, want %d", len(entries), len(order))
	}
	for i, name := range order {
		if entries[i].Name != name {
			t.Fatalf("entry %d: got name %q, want %q", i, entries[i].Name, name)
		}
		if !bytes.Equal(entries[i].Data, files[name]) {
			t.Fatalf("entry %d: got data %q, want %q", i, entries[i].Data, files[name])
		}
	}
}

func TestFindReturnsMatchingEntry(t *testing.T) {
	files := map[string][]byte{"init": []byte("init-elf-bytes")}
	archive := buildArchive(files, []string{"init"})

	data, ok := Find(archive, "init")
	if !ok {
		t.Fatal("expected to find entry")
	}
	if !bytes.Equal(data, files["init"]) {
		t.Fatalf("got %q, want %q", data, files["init"])
	}
}

func TestFindMissingEntryReportsFalse(t *testing.T) {
	archive := buildArchive(map[string][]byte{"init": []byte("x")}, []string{"init"})
	if _, ok := Find(archive, "does-not-exist"); ok {
		t.Fatal("expected not found")
	}
}

func TestAllEmptyArchiveReturnsNoEntries(t *testing.T) {
	archive := buildArchive(nil, nil)
	if entries := All(archive); len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}
