// Command xtask is the host-side build/run/package tool for rvpart:
// cross-compiles the kernel image, boots it under QEMU, archives user
// programs into a CPIO image, and inspects a running instance's schedule,
// partition status, and trap traces. Grounded on original_source's
// xtask/src/main.rs, which plays the identical "one Cli, one Subcommand per
// concern" role for the Rust build.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "xtask",
	Short: "Build, boot, and package rvpart",
}

func main() {
	rootCmd.AddCommand(newMakeCmd())
	rootCmd.AddCommand(newQemuCmd())
	rootCmd.AddCommand(newArchiveCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newTraceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
