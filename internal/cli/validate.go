package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var flags optionFlags

	cmd := &cobra.Command{
		Use:   "validate type/provider[@constraint]...",
		Short: "Check whether a service combination is valid",
		Long: `Check whether the services form a valid, conflict-free,
dependency-complete combination without committing to a resolution.
Compatible additions are suggested when the combination is valid.`,
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

			validation, err := resolver.ValidateCombination(cmd.Context(), refs, opts)
			if err != nil {
				return err
			}

			printIssues(validation.Warnings)
			if !validation.Valid {
				printIssues(validation.Errors)
				return fmt.Errorf("combination is invalid (%d error(s))", len(validation.Errors))
			}

			printSuccess("Combination is valid")
			if len(validation.Suggestions) > 0 {
				printNewline()
				printInfo("You might also want:")
				for _, s := range validation.Suggestions {
					printDetail("%s  %s (score %.2f)", s.Service.ID(), s.Reason, s.Score)
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// suggestCommand creates the suggest command.
func (c *CLI) suggestCommand() *cobra.Command {
	var (
		flags optionFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "suggest type/provider[@constraint]...",
		Short: "Recommend services that complement a selection",
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
			resolver, _, err := c.newResolver(cmd, true)
			if err != nil {
				return err
			}

			suggestions, err := resolver.Suggest(cmd.Context(), refs, opts)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				printInfo("No suggestions for this selection")
				return nil
			}
			if limit > 0 && len(suggestions) > limit {
				suggestions = suggestions[:limit]
			}

			fmt.Println(StyleTitle.Render("Suggested Services"))
			for _, s := range suggestions {
				kind := "bundle"
				if s.Optional {
					kind = "optional"
				}
				printDetail("%-28s %.2f  %s  (%s)", s.Service.ID(), s.Score, s.Reason, kind)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of suggestions")
	return cmd
}
