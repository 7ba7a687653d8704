package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/resolve"
)

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var (
		flags       optionFlags
		bundles     []string
		noCache     bool
		asJSON      bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [type/provider[@constraint]...]",
		Short: "Compute a validated injection plan for services or bundles",
		Long: `Compute a validated injection plan for the requested services.

Services are named as type/provider, optionally with a version constraint:

  forgekit resolve auth/clerk database/postgresql@^16.0.0

Bundles merge curated service sets into the request:

  forgekit resolve --bundle saas-starter --optional

The plan lists every service, dependencies included, in the order the
scaffolding layer must inject them. Conflicts, missing dependencies, and
circular references are reported as structured errors.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(c.Logger)
			if err != nil {
				return err
			}

			// Bare type arguments ("auth") are resolved interactively;
			// everything else must be a full type/provider ref.
			var (
				refs []catalog.Ref
				bare []catalog.ServiceType
			)
			for _, arg := range args {
				if interactive && !strings.Contains(arg, "/") {
					bare = append(bare, catalog.ServiceType(arg))
					continue
				}
				ref, err := catalog.ParseRef(arg)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}

			resolver, cat, err := c.newResolver(cmd, noCache)
			if err != nil {
				return err
			}

			if len(bare) > 0 {
				picked, err := pickProviders(cmd.Context(), cat, bare)
				if err != nil {
					return err
				}
				refs = append(refs, picked...)
			}

			return c.runResolve(cmd.Context(), resolver, resolve.Request{
				Services: refs,
				Bundles:  bundles,
				Options:  opts,
			}, asJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringArrayVarP(&bundles, "bundle", "b", nil, "bundle ID to merge into the request (repeatable)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the resolution cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick providers interactively for bare type arguments")

	return cmd
}

// runResolve executes the resolution and prints the plan.
func (c *CLI) runResolve(ctx context.Context, resolver *resolve.Resolver, req resolve.Request, asJSON bool) error {
	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, "Resolving services...")
	spinner.Start()

	result := resolver.Resolve(ctx, req)
	spinner.Stop()

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printIssues(result.Warnings)
	if !result.OK() {
		printIssues(result.Errors)
		return fmt.Errorf("resolution failed with %d error(s)", len(result.Errors))
	}

	prog.done(fmt.Sprintf("Resolved %d services", len(result.Ordered)))
	printNewline()
	fmt.Println(StyleTitle.Render("Injection Plan"))
	for i, svc := range result.Ordered {
		printStep(i+1, svc.ID(), svc.Version)
	}
	printNewline()
	printStats(len(result.Ordered), len(result.Warnings), result.CacheHit)
	return nil
}

// printIssues prints warnings and errors with severity styling.
func printIssues(issues []resolve.Issue) {
	for _, issue := range issues {
		switch issue.Severity {
		case resolve.SeverityCritical:
			printError("%s: %s", issue.Code, issue.Message)
		default:
			printWarning("%s: %s", issue.Code, issue.Message)
		}
	}
}
