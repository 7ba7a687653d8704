package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/launchforge/forgekit/pkg/resolve"
)

// bundlesCommand creates the bundles command group.
func (c *CLI) bundlesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundles",
		Short: "Inspect curated service bundles",
	}

	cmd.AddCommand(c.bundlesListCommand())
	cmd.AddCommand(c.bundlesShowCommand())
	cmd.AddCommand(c.bundlesCompareCommand())
	return cmd
}

func (c *CLI) bundlesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all bundles in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			bundles, err := cat.ListBundles(cmd.Context())
			if err != nil {
				return err
			}
			if len(bundles) == 0 {
				printInfo("Catalog defines no bundles")
				return nil
			}
			for _, b := range bundles {
				name := b.Name
				if name == "" {
					name = b.ID
				}
				printKeyValue(b.ID, fmt.Sprintf("%s (%d required, %d optional)",
					name, len(b.Required), len(b.Optional)))
			}
			return nil
		},
	}
}

func (c *CLI) bundlesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <bundle-id>",
		Short: "Show one bundle's services",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			bundle, err := cat.GetBundle(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render(bundle.ID))
			if bundle.Description != "" {
				printDetail("%s", bundle.Description)
			}
			printNewline()
			printInfo("Required:")
			for _, ref := range bundle.Required {
				printDetail("%s", ref.String())
			}
			if len(bundle.Optional) > 0 {
				printInfo("Optional:")
				for _, ref := range bundle.Optional {
					printDetail("%s", ref.String())
				}
			}
			return nil
		},
	}
}

// bundlesCompareCommand resolves two bundles and diffs their plans.
func (c *CLI) bundlesCompareCommand() *cobra.Command {
	var flags optionFlags

	cmd := &cobra.Command{
		Use:   "compare <bundle-a> <bundle-b>",
		Short: "Compare the resolved plans of two bundles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(c.Logger)
			if err != nil {
				return err
			}
			resolver, _, err := c.newResolver(cmd, true)
			if err != nil {
				return err
			}

			plans := make([][]string, 2)
			for i, id := range args {
				result := resolver.Resolve(cmd.Context(), resolve.Request{
					Bundles: []string{id},
					Options: opts,
				})
				if !result.OK() {
					printIssues(result.Errors)
					return fmt.Errorf("bundle %s does not resolve", id)
				}
				plans[i] = result.OrderedIDs()
			}

			shared, onlyA, onlyB := diffPlans(plans[0], plans[1])
			fmt.Println(StyleTitle.Render(fmt.Sprintf("%s vs %s", args[0], args[1])))
			printInfo("Shared (%d):", len(shared))
			for _, id := range shared {
				printDetail("%s", id)
			}
			printInfo("Only in %s (%d):", args[0], len(onlyA))
			for _, id := range onlyA {
				printDetail("%s", id)
			}
			printInfo("Only in %s (%d):", args[1], len(onlyB))
			for _, id := range onlyB {
				printDetail("%s", id)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// diffPlans splits two resolved plans into shared and exclusive IDs,
// each sorted.
func diffPlans(a, b []string) (shared, onlyA, onlyB []string) {
	inB := make(map[string]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	inA := make(map[string]bool, len(a))
	for _, id := range a {
		inA[id] = true
		if inB[id] {
			shared = append(shared, id)
		} else {
			onlyA = append(onlyA, id)
		}
	}
	for _, id := range b {
		if !inA[id] {
			onlyB = append(onlyB, id)
		}
	}
	slices.Sort(shared)
	slices.Sort(onlyA)
	slices.Sort(onlyB)
	return shared, onlyA, onlyB
}
