package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kmirinski/Agent-Based-Simulation/sim"
	"github.com/kmirinski/Agent-Based-Simulation/sim/trace"
)

var (
	tracePath string // Where to persist the event/state trace, empty disables
	seed      int64  // Master seed override, negative keeps the scenario value
	horizon   int64  // Horizon override in ticks, negative keeps the scenario value
)

// runCmd executes one simulation to completion and reports statistics.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the freight simulation to completion",
	Run: func(cmd *cobra.Command, args []string) {
		env := buildEnvironment()
		if err := env.Run(); err != nil {
			logrus.Fatalf("Simulation halted: %v", err)
		}

		if tracePath != "" {
			if err := env.Trace.WriteFile(tracePath); err != nil {
				logrus.Fatalf("Writing trace: %v", err)
			}
			summary := trace.Summarize(env.Trace)
			logrus.Infof("Trace written to %s: %d events across [%d,%d], %d snapshots",
				tracePath, summary.TotalEvents, summary.FirstTimestamp, summary.LastTimestamp, summary.SnapshotCount)
		}
		env.Stats.Print(env.Clock)
	},
}

// buildEnvironment loads the scenario and instance files and assembles a
// ready-to-run environment. Any failure here is a configuration error.
func buildEnvironment() *sim.Environment {
	cfg, err := sim.LoadScenarioConfig(configPath)
	if err != nil {
		logrus.Fatalf("Loading scenario: %v", err)
	}
	if seed >= 0 {
		cfg.Seed = seed
	}
	if horizon >= 0 {
		cfg.Horizon = horizon
	}

	inst, err := sim.LoadInstance(cfg.Files)
	if err != nil {
		logrus.Fatalf("Loading instance: %v", err)
	}
	logrus.Infof("Loaded instance: %d nodes, %d requests, %d vehicles, %d scheduled services",
		len(inst.Nodes), len(inst.Requests), len(inst.Vehicles), len(inst.Services))

	env, err := sim.BuildEnvironment(cfg, inst)
	if err != nil {
		logrus.Fatalf("Building environment: %v", err)
	}
	return env
}

func init() {
	runCmd.Flags().StringVar(&tracePath, "out", "logs/trace.json", "Trace output file (empty to disable)")
	runCmd.Flags().Int64Var(&seed, "seed", -1, "Master seed override")
	runCmd.Flags().Int64Var(&horizon, "horizon", -1, "Stop after this many ticks (0 = until the queue drains)")
	rootCmd.AddCommand(runCmd)
}
