package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"v2desk/internal/geoip"
	"v2desk/internal/logger"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	flagDuplicate bool
	flagCompiled  bool
	flagYAML      bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage stored servers",
}

var serverAddCmd = &cobra.Command{
	Use:   "add [profile-file|-]",
	Short: "Add a server from a JSON or YAML profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args)
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.closer.Close()

		_, err = s.service(nil, nil).AddServer(cmd.Context(), data)
		return err
	},
}

var serverEditCmd = &cobra.Command{
	Use:   "edit <name> [profile-file|-]",
	Short: "Replace a server's profile; the new profile may rename it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[1:])
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.closer.Close()

		_, err = s.service(nil, nil).EditServer(cmd.Context(), args[0], data)
		return err
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a server",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.closer.Close()

		return s.service(nil, nil).RemoveServer(cmd.Context(), args[0])
	},
}

var serverShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a server's profile, or its compiled outbound with --compiled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.closer.Close()

		var doc interface{}
		if flagCompiled {
			doc, err = s.service(nil, nil).Compiled(cmd.Context(), args[0])
		} else {
			doc, err = s.service(nil, nil).Server(cmd.Context(), args[0], flagDuplicate)
		}
		if err != nil {
			return err
		}

		var out []byte
		if flagYAML && !flagCompiled {
			out, err = yaml.Marshal(doc)
		} else {
			out, err = json.MarshalIndent(doc, "", "  ")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
		return nil
	},
}

var serverListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List servers with connection state and last latency",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.closer.Close()

		if err := geoip.Init(s.cfg.GeoIP.CountryPath, s.cfg.GeoIP.ASNPath); err != nil {
			logger.Log.Warnf("GeoIP disabled: %v", err)
		}
		defer geoip.Close()

		servers, err := s.service(nil, nil).Servers(cmd.Context())
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No servers. Add one with `v2desk server add` or `v2desk import`.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPROTOCOL\tADDRESS\tGEO\tAUTO\tSTATUS\tLATENCY")
		for _, srv := range servers {
			geo := geoip.Lookup(srv.Address)
			status := "-"
			if srv.Connected {
				status = "\033[32mconnected\033[0m"
			}
			auto := ""
			if srv.AutoConnect {
				auto = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s:%d\t%s %s\t%s\t%s\t%s\n",
				srv.Name, srv.Protocol, srv.Address, srv.Port,
				getFlagEmoji(geo.Country), geo.Country, auto, status, formatLatency(srv.Latency, srv.HasLatency))
		}
		return w.Flush()
	},
}

func connectCommand(use, short string, connected bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.closer.Close()

			return s.service(nil, nil).SetServerConnection(cmd.Context(), args[0], connected)
		},
	}
}

func formatLatency(ms int64, ok bool) string {
	switch {
	case !ok:
		return "-"
	case ms < 0:
		return "\033[31mtimeout\033[0m"
	}
	return fmt.Sprintf("%d ms", ms)
}

func getFlagEmoji(countryCode string) string {
	if len(countryCode) != 2 || countryCode == "--" {
		return "🌐"
	}
	countryCode = strings.ToUpper(countryCode)
	return string(rune(countryCode[0])+127397) + string(rune(countryCode[1])+127397)
}

func init() {
	serverShowCmd.Flags().BoolVar(&flagDuplicate, "duplicate", false, "Omit the server name so the output can seed a new server")
	serverShowCmd.Flags().BoolVar(&flagCompiled, "compiled", false, "Print the compiled outbound instead of the profile")
	serverShowCmd.Flags().BoolVar(&flagYAML, "yaml", false, "Print the profile as YAML")

	serverCmd.AddCommand(
		serverAddCmd,
		serverEditCmd,
		serverRemoveCmd,
		serverShowCmd,
		serverListCmd,
		connectCommand("connect", "Route traffic through a server", true),
		connectCommand("disconnect", "Stop routing traffic through a server", false),
	)
	rootCmd.AddCommand(serverCmd)
}
