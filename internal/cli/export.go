package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/export"
	"github.com/launchforge/forgekit/pkg/resolve"
)

// exportCommand creates the export command for rendering dependency
// graphs.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		flags  optionFlags
		format string
		output string
		labels bool
	)

	cmd := &cobra.Command{
		Use:   "export type/provider[@constraint]...",
		Short: "Render the dependency graph as DOT, SVG, or PNG",
		Long: `Resolve the selection and render its dependency graph.

Formats: dot (default), svg, png. DOT output goes to stdout unless
--output is given; svg and png require --output.`,
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

			result := resolver.Resolve(cmd.Context(), resolve.Request{Services: refs, Options: opts})
			if !result.OK() {
				printIssues(result.Errors)
				return fmt.Errorf("selection does not resolve")
			}

			services := make(map[string]*catalog.Service, len(result.Ordered))
			for _, svc := range result.Ordered {
				services[svc.ID()] = svc
			}
			highlight := make([]string, 0, len(refs))
			for _, ref := range refs {
				highlight = append(highlight, ref.ID())
			}

			dot := export.ToDOT(result.Graph(), services, export.Options{
				Labels:    labels,
				Highlight: highlight,
			})

			switch strings.ToLower(format) {
			case "", "dot":
				if output == "" {
					fmt.Print(dot)
					return nil
				}
				return writeOutput(output, []byte(dot))
			case "svg":
				data, err := export.RenderSVG(cmd.Context(), dot)
				if err != nil {
					return err
				}
				return writeOutput(output, data)
			case "png":
				data, err := export.RenderPNG(cmd.Context(), dot)
				if err != nil {
					return err
				}
				return writeOutput(output, data)
			default:
				return fmt.Errorf("unknown format %q (dot, svg, png)", format)
			}
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().BoolVar(&labels, "labels", false, "include version and priority in node labels")
	return cmd
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("this format requires --output")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	printFile(path)
	return nil
}
