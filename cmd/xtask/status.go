package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"rvpart/kernel/apex"
)

// statusSnapshot is one line of the newline-delimited JSON a debug build
// can emit over the console (kernel/syscall's GET_PARTITION_STATUS /
// GET_PROCESS_STATUS handlers), read back here for display. Logging these
// live status calls as JSON is something a debug kernel build can opt
// into; decoding and rendering them is entirely a host-side concern.
type statusSnapshot struct {
	Partition *apex.PartitionStatus `json:"partition,omitempty"`
	Process   *apex.ProcessStatus   `json:"process,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Render partition/process status snapshots as tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(path)
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "-", "file of newline-delimited status JSON, or - for stdin")
	return cmd
}

func runStatus(path string) error {
	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("xtask status: %w", err)
		}
		defer f.Close()
		in = f
	}

	var partitions []apex.PartitionStatus
	var processes []apex.ProcessStatus

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var snap statusSnapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			return fmt.Errorf("xtask status: decoding line: %w", err)
		}
		if snap.Partition != nil {
			partitions = append(partitions, *snap.Partition)
		}
		if snap.Process != nil {
			processes = append(processes, *snap.Process)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("xtask status: %w", err)
	}

	if len(partitions) > 0 {
		renderPartitionTable(partitions)
	}
	if len(processes) > 0 {
		renderProcessTable(processes)
	}
	return nil
}

func renderPartitionTable(rows []apex.PartitionStatus) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Mode", "Start", "Lock", "Cores"})
	for _, p := range rows {
		table.Append([]string{
			fmt.Sprintf("%d", p.Identifier),
			p.OperatingMode.String(),
			fmt.Sprintf("%d", p.StartCondition),
			fmt.Sprintf("%d", p.LockLevel),
			fmt.Sprintf("%d", p.NumAssignedCores),
		})
	}
	table.Render()
}

func renderProcessTable(rows []apex.ProcessStatus) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "State", "Priority", "Deadline"})
	for _, p := range rows {
		table.Append([]string{
			p.Attributes.Name.String(),
			p.ProcessState.String(),
			fmt.Sprintf("%d", p.CurrentPriority),
			fmt.Sprintf("%d", p.DeadlineTime),
		})
	}
	table.Render()
}
