package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kmirinski/Agent-Based-Simulation/server"
)

var addr string // Listen address for the HTTP serving layer

// serveCmd exposes a simulation over HTTP, advancing one step per snapshot
// request so a frontend can drive the run interactively.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation over HTTP, stepping on demand",
	Run: func(cmd *cobra.Command, args []string) {
		env := buildEnvironment()
		srv := server.New(env)
		if err := srv.Run(addr); err != nil {
			logrus.Fatalf("Server failed: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8888", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
