package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kmirinski/Agent-Based-Simulation/sim"
)

var (
	genOut      string // Output directory for the generated tables
	genSeed     int64  // Generation seed
	genNodes    int    // Number of network nodes
	genRequests int    // Number of requests
	genVehicles int    // Number of trucks
	genTmax     int64  // Upper bound for request time windows
)

// generateCmd emits a random but reproducible instance as CSV tables.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random problem instance",
	Run: func(cmd *cobra.Command, args []string) {
		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(genSeed)).ForSubsystem(sim.SubsystemInstance)
		inst, err := sim.GenerateInstance(sim.GenSpec{
			NumNodes:    genNodes,
			NumRequests: genRequests,
			NumVehicles: genVehicles,
			Tmax:        genTmax,
		}, rng)
		if err != nil {
			logrus.Fatalf("Generating instance: %v", err)
		}
		if err := inst.WriteCSV(genOut); err != nil {
			logrus.Fatalf("Writing instance: %v", err)
		}
		logrus.Infof("Instance written to %s: %d nodes, %d requests, %d vehicles",
			genOut, len(inst.Nodes), len(inst.Requests), len(inst.Vehicles))
	},
}

func init() {
	generateCmd.Flags().StringVar(&genOut, "out", "instance", "Output directory")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 42, "Generation seed")
	generateCmd.Flags().IntVar(&genNodes, "nodes", 3, "Number of nodes")
	generateCmd.Flags().IntVar(&genRequests, "requests", 5, "Number of requests")
	generateCmd.Flags().IntVar(&genVehicles, "vehicles", 4, "Number of trucks")
	generateCmd.Flags().Int64Var(&genTmax, "tmax", 100, "Time window upper bound")
	rootCmd.AddCommand(generateCmd)
}
