package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

// newcTrailerName is the terminal record every CPIO-NEWC archive ends with.
const newcTrailerName = "TRAILER!!!"

func newArchiveCmd() *cobra.Command {
	var artifactsDir, archivePath string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Package built user programs into a CPIO-NEWC archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(artifactsDir, archivePath)
		},
	}

	cmd.Flags().StringVarP(&artifactsDir, "artifacts-dir", "s", "", "directory of built user program binaries")
	cmd.Flags().StringVarP(&archivePath, "dest", "d", "uprog.cpio", "output archive path")
	_ = cmd.MarkFlagRequired("artifacts-dir")

	return cmd
}

// runArchive walks artifactsDir and writes every regular file it finds into
// a CPIO-NEWC archive at archivePath, named by its path relative to
// artifactsDir. Mirrors original_source's xtask/src/ar.rs archive_dir_all +
// cpio::write_cpio.
func runArchive(artifactsDir, archivePath string) error {
	root, err := filepath.Abs(artifactsDir)
	if err != nil {
		return err
	}

	var slugs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		slugs = append(slugs, rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("xtask archive: walking %s: %w", root, err)
	}
	sort.Strings(slugs)

	var buf bytes.Buffer
	for _, slug := range slugs {
		data, rerr := os.ReadFile(filepath.Join(root, slug))
		if rerr != nil {
			return fmt.Errorf("xtask archive: reading %s: %w", slug, rerr)
		}
		writeNewcEntry(&buf, slug, data)
	}
	writeNewcEntry(&buf, newcTrailerName, nil)

	if err := os.WriteFile(archivePath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("xtask archive: writing %s: %w", archivePath, err)
	}

	fmt.Printf("xtask archive: wrote %d entries to %s\n", len(slugs), archivePath)
	return nil
}

// writeNewcEntry appends one CPIO-NEWC header+name+data record to buf,
// matching the layout kernel/uprog.All/Find decode.
func writeNewcEntry(buf *bytes.Buffer, name string, data []byte) {
	nameSize := len(name) + 1
	fmt.Fprintf(buf, "070701%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x",
		0, 0o100644, 0, 0, 1, 0, len(data), 0, 0, 0, 0, nameSize, 0)
	buf.WriteString(name)
	buf.WriteByte(0)
	padNewc4(buf)
	buf.Write(data)
	padNewc4(buf)
}

func padNewc4(buf *bytes.Buffer) {
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}
