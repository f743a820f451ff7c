package main

import (
	"fmt"

	"v2desk/internal/compiler"
	"v2desk/internal/profile"
	"v2desk/internal/xray"

	"github.com/spf13/cobra"
)

var flagCheck bool

var compileCmd = &cobra.Command{
	Use:   "compile [profile-file|-]",
	Short: "Compile a server profile into an outbound configuration",
	Long:  `Reads a JSON or YAML server profile and prints the outbound configuration built from it. Use --check to also verify the result loads into the embedded core.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args)
		if err != nil {
			return err
		}

		cfg, _, err := compiler.New().CompileDocument(data)
		if err != nil {
			return err
		}
		for _, d := range cfg.Diagnostics {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", d)
		}
		if cfg.Degraded() {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: supported transports are %v\n", profile.Networks)
		}

		if flagCheck {
			if err := xray.Validate(cfg); err != nil {
				return fmt.Errorf("core rejected configuration: %w", err)
			}
		}

		out, err := cfg.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	compileCmd.Flags().BoolVar(&flagCheck, "check", false, "Verify the configuration against the embedded core")
	rootCmd.AddCommand(compileCmd)
}
