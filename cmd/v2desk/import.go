package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"v2desk/internal/db"
	"v2desk/internal/links"
	"v2desk/internal/logger"
	"v2desk/internal/subscription"

	"github.com/spf13/cobra"
)

var (
	flagImportURL   string
	flagImportProxy string
)

var importCmd = &cobra.Command{
	Use:   "import [links-file|-]",
	Short: "Import servers from share links or a subscription URL",
	Long:  `Reads vmess:// and ss:// links from a file, stdin, or a subscription URL (--url). Plain and base64 subscription bodies are accepted. Servers whose name already exists are skipped.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var found []string
		if flagImportURL != "" {
			fetcher, err := subscription.NewFetcher(flagImportProxy)
			if err != nil {
				return err
			}
			if found, err = fetcher.Fetch(ctx, flagImportURL); err != nil {
				return err
			}
		} else {
			data, err := readInput(args)
			if err != nil {
				return err
			}
			found = links.Extract(string(data))
		}
		if len(found) == 0 {
			logger.Log.Warn("No share links found.")
			return nil
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.closer.Close()
		svc := s.service(nil, nil)

		imported := 0
		for _, raw := range found {
			p, err := links.Parse(raw)
			if err != nil {
				logger.Log.Debugf("Skipping link: %v", err)
				continue
			}
			if p.ServerName == "" {
				p.ServerName = net.JoinHostPort(p.ServerAddr, strconv.Itoa(int(p.ServerPort)))
			}

			doc, err := p.Encode()
			if err != nil {
				return err
			}
			if _, err := svc.AddServer(ctx, doc); err != nil {
				if errors.Is(err, db.ErrDuplicate) {
					logger.Log.Infof("Skipping existing server %s", p.ServerName)
					continue
				}
				logger.Log.Warnf("Failed to import %s: %v", p.ServerName, err)
				continue
			}
			imported++
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d links.\n", imported, len(found))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&flagImportURL, "url", "", "Subscription URL to fetch")
	importCmd.Flags().StringVar(&flagImportProxy, "proxy", "", "Proxy URL for the subscription request (e.g. http://127.0.0.1:8118)")
	rootCmd.AddCommand(importCmd)
}
