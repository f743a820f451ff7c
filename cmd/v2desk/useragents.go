package main

import (
	"fmt"

	"v2desk/internal/compiler"
	"v2desk/internal/useragent"

	"github.com/spf13/cobra"
)

var (
	flagAgentCount int
	flagAgentSeed  uint64
)

var userAgentsCmd = &cobra.Command{
	Use:   "useragents",
	Short: "Print browser user agents of the kind used for HTTP camouflage",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		gen := useragent.New()
		if cmd.Flags().Changed("seed") {
			gen = useragent.NewSeeded(flagAgentSeed)
		}
		for _, ua := range gen.Generate(flagAgentCount) {
			fmt.Fprintln(cmd.OutOrStdout(), ua)
		}
	},
}

func init() {
	userAgentsCmd.Flags().IntVarP(&flagAgentCount, "count", "n", compiler.AgentCount, "Number of user agents")
	userAgentsCmd.Flags().Uint64Var(&flagAgentSeed, "seed", 0, "Seed for reproducible output")
	rootCmd.AddCommand(userAgentsCmd)
}
