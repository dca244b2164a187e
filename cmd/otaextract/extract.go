// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flatcar-linux/otaextract/engine"
	"github.com/flatcar-linux/otaextract/util"
)

var (
	extractCmd = &cobra.Command{
		Use:   "extract [payload.bin]",
		Short: "Decode a payload and write out its partition images",
		Args:  cobra.ExactArgs(1),
		Run:   runExtract,
	}

	extractOutputDir   string
	extractVerify      string
	extractSanity      bool
	extractThreads     int
	extractPrintHashes bool
	extractStats       bool
	extractOnly        []string
	extractQuiet       bool
)

func init() {
	extractCmd.Flags().StringVarP(&extractOutputDir, "output", "o", "out",
		"Directory to write partition images into")
	extractCmd.Flags().StringVar(&extractVerify, "verify", "normal",
		"Verification level: off, normal, or strict")
	extractCmd.Flags().BoolVar(&extractSanity, "sanity", false,
		"Reject a partition whose output is entirely zero bytes")
	extractCmd.Flags().IntVar(&extractThreads, "threads", 0,
		"Worker concurrency per partition (0 = auto, clamped to [1,256])")
	extractCmd.Flags().BoolVar(&extractPrintHashes, "print-hashes", false,
		"Print each partition's digest even when verification is off")
	extractCmd.Flags().BoolVar(&extractStats, "stats", false,
		"Print per-partition timing after extraction")
	extractCmd.Flags().StringSliceVar(&extractOnly, "only", nil,
		"Restrict extraction to these partitions (default: all)")
	extractCmd.Flags().BoolVarP(&extractQuiet, "quiet", "q", false,
		"Don't draw a progress bar")
	root.AddCommand(extractCmd)
}

func planTotalBytes(plan *engine.Plan) uint64 {
	var total uint64
	for _, pp := range plan.Partitions {
		total += pp.TotalBytes
	}
	return total
}

func parseVerifyMode(s string) (engine.VerifyMode, error) {
	switch s {
	case "off":
		return engine.VerifyOff, nil
	case "normal":
		return engine.VerifyNormal, nil
	case "strict":
		return engine.VerifyStrict, nil
	default:
		return 0, fmt.Errorf("unknown verification level %q", s)
	}
}

func runExtract(cmd *cobra.Command, args []string) {
	verify, err := parseVerifyMode(extractVerify)
	if err != nil {
		plog.Fatal(err)
	}

	sel := engine.All()
	if len(extractOnly) > 0 {
		sel = engine.Only(extractOnly...)
	}

	src, err := engine.Open(args[0])
	if err != nil {
		plog.Fatalf("opening payload: %v", err)
	}
	defer src.Close()

	plan, err := engine.BuildPlan(src, sel)
	if err != nil {
		plog.Fatalf("building extraction plan: %v", err)
	}

	sinks := engine.Sinks{
		PartitionHash: func(partition, hashHex string) {
			if extractPrintHashes || verify != engine.VerifyOff {
				cmd.Printf("%s  %s\n", hashHex, partition)
			}
		},
		PartitionDone: func(partition string, d time.Duration) {
			if extractStats {
				cmd.Printf("%s: %s\n", partition, d)
			}
		},
	}
	if !extractQuiet {
		sinks.Progress = util.ProgressFunc("extracting", int64(planTotalBytes(plan)))
	}

	cfg := engine.DefaultConfig()
	cfg.Verify = verify
	cfg.Sanity = extractSanity
	cfg.Threads = extractThreads
	cfg.PrintHashes = extractPrintHashes
	cfg.Stats = extractStats
	cfg.Selected = sel
	cfg.OutputDir = extractOutputDir

	summary, err := engine.ExtractWithSignals(cmd.Context(), src, plan, cfg, sinks)
	if err != nil {
		plog.Fatalf("extraction failed: %v", err)
	}

	cmd.Printf("wrote %d partitions, %d bytes, in %s\n",
		len(summary.Partitions), summary.TotalBytes, summary.Duration)
}
