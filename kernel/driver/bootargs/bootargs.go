// Package bootargs parses the kernel command line handed down by the boot
// shim (spec.md §1's out-of-scope loader) and runs any named self-test it
// requests. Grounded on original_source's kern/src/bootargs.rs, which
// parses the same "-t/--test <name>" / "-h/--help" command line with the
// getargs crate; this package reaches for pflag's GNU-getopt-compatible
// parser as the closest pack equivalent.
package bootargs

import (
	"sort"

	"github.com/spf13/pflag"

	"rvpart/kernel/kfmt"
)

var raw string

// Set records the raw boot argument string. Called once by the boot shim
// before Execute.
func Set(bootargs string) {
	raw = bootargs
}

// TestFunc is a registered self-test: a named, no-argument routine that
// Execute can dispatch into via "-t <name>".
type TestFunc func()

var registry = map[string]TestFunc{}

// Register adds a named self-test to the registry. Intended to be called
// from package init functions, mirroring original_source's jrinx_testdef
// registration pattern.
func Register(name string, fn TestFunc) {
	registry[name] = fn
}

// Execute splits the recorded boot argument string on whitespace and runs
// the requested self-test, if any. Safe to call with no boot arguments set.
// An unknown option (or any other parse error) is reported and then panics.
func Execute() {
	if raw == "" {
		return
	}

	kfmt.Printf("bootargs: %s\n", raw)

	fs := pflag.NewFlagSet("bootargs", pflag.ContinueOnError)
	fs.SetOutput(discard{})
	test := fs.StringP("test", "t", "", "run the named self-test")
	help := fs.BoolP("help", "h", false, "display this information")

	if err := fs.Parse(splitFields(raw)); err != nil {
		kfmt.Printf("bootargs: %s\n", err.Error())
		panic(err)
	}

	if *help {
		kfmt.Printf("boot arguments:\n")
		kfmt.Printf("   -t, --test <test>    Run the specified test\n")
		kfmt.Printf("   -h, --help           Display this information\n")
		return
	}

	if *test == "" {
		return
	}

	if *test == "help" {
		kfmt.Printf("all available tests:\n")
		names := make([]string, 0, len(registry))
		for name := range registry {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			kfmt.Printf("- %s\n", name)
		}
		return
	}

	fn, ok := registry[*test]
	if !ok {
		kfmt.Printf("bootargs: unrecognized test case: %s\n", *test)
		return
	}

	kfmt.Printf("test case %s begin\n", *test)
	fn()
	kfmt.Printf("test case %s end\n", *test)
}

// splitFields is a minimal whitespace tokenizer; strings.Fields would do the
// same but this keeps the boot-args path free of any allocation beyond the
// single slice it returns.
func splitFields(s string) []string {
	var fields []string
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

// discard silences pflag's own usage/error printing to stderr, which does
// not exist in a freestanding kernel; Execute reports errors via kfmt
// itself.
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
