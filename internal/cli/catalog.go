package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchforge/forgekit/pkg/catalog"
)

// catalogCommand creates the catalog command group.
func (c *CLI) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate and inspect catalog files",
	}

	cmd.AddCommand(c.catalogValidateCommand())
	cmd.AddCommand(c.catalogListCommand())
	return cmd
}

// catalogValidateCommand loads the catalog and lints it for dangling refs
// and impossible constraints.
func (c *CLI) catalogValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog and lint for broken references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			problems := cat.Lint()
			services := cat.Services()
			if len(problems) == 0 {
				printSuccess("Catalog is valid")
				printDetail("%d services", len(services))
				return nil
			}

			for _, p := range problems {
				printWarning("%s", p)
			}
			return fmt.Errorf("catalog has %d problem(s)", len(problems))
		},
	}
}

// catalogListCommand lists services, optionally filtered by type.
func (c *CLI) catalogListCommand() *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			var services []*catalog.Service
			if typ != "" {
				services, err = cat.ListByType(cmd.Context(), catalog.ServiceType(typ))
				if err != nil {
					return err
				}
			} else {
				services = cat.Services()
			}

			for _, svc := range services {
				detail := "v" + svc.Version
				if svc.Description != "" {
					detail += "  " + svc.Description
				}
				printKeyValue(svc.ID(), detail)
			}
			printNewline()
			printDetail("%d services", len(services))
			return nil
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "filter by service type")
	return cmd
}

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the resolution cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	return cmd
}

// cacheClearCommand clears cached resolutions. Only useful with a shared
// Redis cache; the in-memory cache dies with the process.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached resolutions",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, _, err := c.newResolver(cmd, false)
			if err != nil {
				return err
			}
			cleared, err := resolver.ClearCache(cmd.Context(), pattern)
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached resolutions", cleared)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "glob pattern of keys to clear (default all resolutions)")
	return cmd
}
