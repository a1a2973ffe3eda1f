package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"rvpart/kernel/irq"
	"rvpart/kernel/vmm"
)

// traceFile is a host-decodable dump of a trapped Context and/or a page
// table's live mapping set, as a debug kernel build can JSON-encode and
// emit over the console in place of (or alongside) irq.Context.Print's
// plain-text form and vmm.PageTable.Mappings' in-memory-only view.
type traceFile struct {
	Contexts []irq.Context `json:"contexts"`
	Mappings []vmm.Mapping `json:"mappings"`
}

func newTraceCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Deep-dump captured trap contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(path)
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "path to a JSON trace file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runTrace(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("xtask trace: %w", err)
	}

	var tf traceFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("xtask trace: %w", err)
	}

	for i, ctx := range tf.Contexts {
		fmt.Printf("--- context %d ---\n", i)
		spew.Dump(ctx)
	}
	if len(tf.Mappings) > 0 {
		fmt.Printf("--- page table mappings (%d) ---\n", len(tf.Mappings))
		spew.Dump(tf.Mappings)
	}
	return nil
}
