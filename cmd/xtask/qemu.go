package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// qemuArgs mirrors original_source's xtask/src/qemu.rs QemuArg fields -
// machine/smp/memory/bios and the bootargs string passed through to the
// kernel command line.
type qemuArgs struct {
	binary     string
	machine    string
	smp        int
	memory     string
	bios       string
	kernelPath string
	bootArgs   string
	partitions string
}

func newQemuCmd() *cobra.Command {
	var a qemuArgs

	cmd := &cobra.Command{
		Use:   "qemu",
		Short: "Boot the kernel image under QEMU",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQemu(&a)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&a.binary, "qemu-binary", "qemu-system-riscv64", "QEMU binary to invoke")
	fs.StringVar(&a.machine, "machine", "virt", "QEMU -machine value")
	fs.IntVar(&a.smp, "smp", 1, "number of harts")
	fs.StringVar(&a.memory, "memory", "256M", "QEMU -m value")
	fs.StringVar(&a.bios, "bios", "none", "QEMU -bios value")
	fs.StringVar(&a.kernelPath, "kernel", "bin/kernel", "path to the built kernel image")
	fs.StringVar(&a.bootArgs, "bootargs", "", "kernel command line")
	fs.StringVar(&a.partitions, "partitions", "", "path to a YAML partition schedule, for reference only")

	return cmd
}

func runQemu(a *qemuArgs) error {
	qemuCmd := exec.Command(a.binary,
		"-machine", a.machine,
		"-smp", fmt.Sprintf("%d", a.smp),
		"-m", a.memory,
		"-bios", a.bios,
		"-nographic",
		"-kernel", a.kernelPath,
		"-append", a.bootArgs,
	)
	qemuCmd.Stdin = os.Stdin
	qemuCmd.Stdout = os.Stdout
	qemuCmd.Stderr = os.Stderr

	// Its own process group, so a Ctrl-C at this terminal can be forwarded
	// deliberately rather than also landing on xtask itself.
	qemuCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var restoreTerm func()
	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			restoreTerm = func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }
			defer restoreTerm()
		}
	}

	if err := qemuCmd.Start(); err != nil {
		return fmt.Errorf("xtask qemu: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- qemuCmd.Wait() }()

	for {
		select {
		case sig := <-sigCh:
			forwardToProcessGroup(qemuCmd.Process.Pid, sig)
		case err := <-done:
			signal.Stop(sigCh)
			return err
		}
	}
}

// forwardToProcessGroup relays sig to every process in qemuCmd's process
// group (the negative pid convention), so QEMU's own child helper
// processes shut down cleanly instead of being orphaned.
func forwardToProcessGroup(pid int, sig os.Signal) {
	unixSig, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	_ = unix.Kill(-pid, unixSig)
}
