package cli

import (
	"github.com/spf13/cobra"

	"github.com/launchforge/forgekit/internal/api"
)

// serveCommand creates the serve command running the HTTP resolution API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP resolution API",
		Long: `Serve the resolution engine over HTTP.

Endpoints live under /v1: resolve, validate, suggest, order, cycles,
services, bundles, and cache. The server shuts down gracefully on
SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, cat, err := c.newResolver(cmd, noCache)
			if err != nil {
				return err
			}
			server := api.NewServer(resolver, cat, c.Logger)
			return server.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the resolution cache")
	return cmd
}
