package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// orderCommand creates the order command: resolve and print only the
// injection order, one service ID per line, suitable for piping.
func (c *CLI) orderCommand() *cobra.Command {
	var (
		flags   optionFlags
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "order type/provider[@constraint]...",
		Short: "Print the injection order for a service selection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(c.Logger)
			if err != nil {
				return err
			}
			refs, err := parseRefs(args)
			if err != nil {
				return err
			}
			resolver, _, err := c.newResolver(cmd, noCache)
			if err != nil {
				return err
			}

			order, err := resolver.InjectionOrder(cmd.Context(), refs, opts)
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(order, "\n"))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the resolution cache")
	return cmd
}

// cyclesCommand creates the cycles command.
func (c *CLI) cyclesCommand() *cobra.Command {
	var flags optionFlags

	cmd := &cobra.Command{
		Use:   "cycles type/provider[@constraint]...",
		Short: "Report circular dependencies in a service selection",
		Long: `Report every circular dependency reachable from the selection.

Cycles made entirely of required dependencies are critical: no injection
order can satisfy them. Cycles containing an optional dependency are
soft and are broken automatically during resolution.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(c.Logger)
			if err != nil {
				return err
			}
			refs, err := parseRefs(args)
			if err != nil {
				return err
			}
			resolver, _, err := c.newResolver(cmd, true)
			if err != nil {
				return err
			}

			reports, err := resolver.DetectCycles(cmd.Context(), refs, opts)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				printSuccess("No circular dependencies")
				return nil
			}

			for _, report := range reports {
				loop := strings.Join(report.Nodes, " "+iconArrow+" ")
				if report.Broken {
					printWarning("soft cycle %s (broke %s)", loop, report.DroppedEdge)
					continue
				}
				printError("critical cycle %s", loop)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
