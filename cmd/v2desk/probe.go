package main

import (
	"fmt"
	"os"
	"sort"

	"v2desk/internal/tester"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe [name]",
	Short: "Measure latency through one server, or all servers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) > 0 {
			name = args[0]
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.closer.Close()

		total := 1
		if name == "" {
			servers, err := s.store.List(cmd.Context())
			if err != nil {
				return err
			}
			total = len(servers)
		}
		if total == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No servers to probe.")
			return nil
		}

		bar := progressbar.NewOptions(total,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(15),
			progressbar.OptionSetDescription("[cyan]Probing...[reset]"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)

		prober := tester.New(s.cfg.Probe)
		prober.OnResult(func(string, int64) { bar.Add(1) })

		results, err := s.service(nil, prober).ProbeLatency(cmd.Context(), name)
		if err != nil {
			return err
		}
		latency := <-results
		bar.Finish()
		fmt.Fprint(os.Stderr, "\n")

		names := make([]string, 0, len(latency))
		for n := range latency {
			names = append(names, n)
		}
		sort.Slice(names, func(i, j int) bool {
			a, b := latency[names[i]], latency[names[j]]
			if (a < 0) != (b < 0) {
				return b < 0
			}
			return a < b
		})

		for _, n := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%-30s %s\n", n, formatLatency(latency[n], true))
		}
		prober.Metrics().PrintReport(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
