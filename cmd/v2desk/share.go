package main

import (
	"fmt"

	"v2desk/internal/links"

	"github.com/spf13/cobra"
)

var shareCmd = &cobra.Command{
	Use:   "share <name>",
	Short: "Print a server as a vmess:// or ss:// share link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.closer.Close()

		p, err := s.service(nil, nil).Profile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		link, err := links.Format(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shareCmd)
}
