package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rvpart/kernel/apex"
	"rvpart/kernel/sched"
)

// scheduleFile is the YAML shape a major frame schedule is authored in,
// e.g. the spec.md scenario 6 table:
//
//	period: 4s
//	slots:
//	  - partition: A
//	    offset: 0s
//	    duration: 1s
//	  - partition: B
//	    offset: 1s
//	    duration: 1s
type scheduleFile struct {
	Period string         `yaml:"period"`
	Slots  []scheduleSlot `yaml:"slots"`
}

type scheduleSlot struct {
	Partition string `yaml:"partition"`
	Offset    string `yaml:"offset"`
	Duration  string `yaml:"duration"`
}

func newScheduleCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Validate a YAML major-frame schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := loadSchedule(path)
			if err != nil {
				return err
			}
			fmt.Printf("xtask schedule: %d slot(s) over a %s major frame\n", len(frame.Slots()), frame.Period())
			for _, s := range frame.Slots() {
				fmt.Printf("  %-8s offset=%-10s duration=%s\n", s.Partition.String(), s.Offset, s.Duration)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "schedule.yaml", "path to the schedule YAML file")
	return cmd
}

// loadSchedule reads and validates a major frame schedule from a YAML file,
// building the same sched.MajorFrame the kernel's own scheduler consumes.
func loadSchedule(path string) (*sched.MajorFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("xtask schedule: %w", err)
	}

	var sf scheduleFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("xtask schedule: parsing %s: %w", path, err)
	}

	period, err := time.ParseDuration(sf.Period)
	if err != nil {
		return nil, fmt.Errorf("xtask schedule: period %q: %w", sf.Period, err)
	}

	slots := make([]sched.Slot, 0, len(sf.Slots))
	for _, s := range sf.Slots {
		name, ok := apex.NewName(s.Partition)
		if !ok {
			return nil, fmt.Errorf("xtask schedule: partition name %q too long", s.Partition)
		}
		offset, err := time.ParseDuration(s.Offset)
		if err != nil {
			return nil, fmt.Errorf("xtask schedule: offset %q: %w", s.Offset, err)
		}
		duration, err := time.ParseDuration(s.Duration)
		if err != nil {
			return nil, fmt.Errorf("xtask schedule: duration %q: %w", s.Duration, err)
		}
		slots = append(slots, sched.Slot{Partition: name, Offset: offset, Duration: duration})
	}

	frame, kerr := sched.NewMajorFrame(period, slots)
	if kerr != nil {
		return nil, fmt.Errorf("xtask schedule: %s", kerr.Error())
	}
	return frame, nil
}
