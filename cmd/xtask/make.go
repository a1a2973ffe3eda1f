package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// makeSteps are the stages of a full build, run in sequence: tidy the
// module, vet every package, build the kernel image, build xtask itself.
// xtask has no incremental compiler hooks into
// `go build` to report real sub-step progress, so each step simply
// advances the bar by one once its subprocess exits - the teacher's own
// `make` target is similarly all-or-nothing per step.
var makeSteps = []struct {
	name string
	args []string
}{
	{name: "tidy", args: []string{"mod", "tidy"}},
	{name: "vet", args: []string{"vet", "./..."}},
	{name: "build kernel", args: []string{"build", "-o", "bin/kernel", "./cmd/kernel"}},
	{name: "build xtask", args: []string{"build", "-o", "bin/xtask", "./cmd/xtask"}},
}

func newMakeCmd() *cobra.Command {
	var goarch string
	var skipVet bool

	cmd := &cobra.Command{
		Use:   "make",
		Short: "Cross-compile the kernel image and host tooling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMake(goarch, skipVet)
		},
	}

	cmd.Flags().StringVar(&goarch, "goarch", "riscv64", "GOARCH to build the kernel image for")
	cmd.Flags().BoolVar(&skipVet, "skip-vet", false, "skip the go vet step")

	return cmd
}

func runMake(goarch string, skipVet bool) error {
	steps := makeSteps
	if skipVet {
		steps = append([]struct {
			name string
			args []string
		}{}, steps[0], steps[2], steps[3])
	}

	bar := progressbar.NewOptions(len(steps),
		progressbar.OptionSetDescription("xtask make"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
	)

	for _, step := range steps {
		goCmd := exec.Command("go", step.args...)
		goCmd.Env = os.Environ()
		if step.name == "build kernel" {
			goCmd.Env = append(goCmd.Env, "GOOS=linux", "GOARCH="+goarch, "CGO_ENABLED=0")
		}
		goCmd.Stdout = os.Stdout
		goCmd.Stderr = os.Stderr

		start := time.Now()
		if err := goCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "\nxtask make: step %q failed: %s\n", step.name, err)
			return err
		}
		_ = bar.Add(1)
		_ = time.Since(start)
	}

	fmt.Println()
	return nil
}
