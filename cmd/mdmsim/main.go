// Package main — cmd/mdmsim/main.go
//
// Sensitivity-check CLI: reads one newline-delimited JSON event file,
// perturbs each of the nine state keys by +/- epsilon, and reports how
// many perturbations flip the selected action or escalation level
// relative to the unperturbed baseline.
//
// Output: per-event CSV to stdout (event_index, flip_count,
// level_flip_count, perturbations).
package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aegiskernel/mdm/internal/config"
	"github.com/aegiskernel/mdm/internal/mdmtypes"
	"github.com/aegiskernel/mdm/internal/pipeline"
	"github.com/aegiskernel/mdm/internal/replay"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		profile    string
		inputPath  string
		eps        float64
	)

	cmd := &cobra.Command{
		Use:   "mdmsim",
		Short: "Run the sensitivity check over a stream of events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, profile, inputPath, eps)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml (optional)")
	cmd.Flags().StringVar(&profile, "profile", "base", "named configuration profile")
	cmd.Flags().StringVar(&inputPath, "input", "-", "path to a newline-delimited JSON event file, or - for stdin")
	cmd.Flags().Float64Var(&eps, "eps", 0.05, "perturbation magnitude applied to each state key")

	return cmd
}

func run(configPath, profile, inputPath string, eps float64) error {
	if eps <= 0 || eps > 1 {
		return fmt.Errorf("eps must be in (0, 1], got %f", eps)
	}

	cfg, err := config.Load(configPath, profile)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	pl := pipeline.New(cfg, nil, zap.NewNop())

	in := os.Stdin
	if inputPath != "-" && inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input %q: %w", inputPath, err)
		}
		defer f.Close()
		in = f
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	if err := w.Write([]string{"event_index", "flip_count", "level_flip_count", "perturbations"}); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	index := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev mdmtypes.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			fmt.Fprintf(os.Stderr, "skipping malformed event %d: %v\n", index, err)
			index++
			continue
		}

		result, err := replay.RunSensitivityCheck(pl, ev, eps)
		if err != nil {
			return fmt.Errorf("sensitivity check on event %d: %w", index, err)
		}

		if err := w.Write([]string{
			fmt.Sprintf("%d", index),
			fmt.Sprintf("%d", result.FlipCount),
			fmt.Sprintf("%d", result.LevelFlipCount),
			fmt.Sprintf("%d", result.Perturbations),
		}); err != nil {
			return fmt.Errorf("csv row: %w", err)
		}
		index++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}
