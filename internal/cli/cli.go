// Package cli implements the forgekit command-line interface.
//
// This package provides commands for resolving service selections into
// injection plans, validating combinations, inspecting bundles and
// catalogs, exporting dependency graphs, and serving the resolution API
// over HTTP. The CLI is built using cobra and supports verbose logging
// via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - resolve: Compute a validated injection plan for services or bundles
//   - order: Print only the injection order
//   - cycles: Report circular dependencies in a selection
//   - validate: Check a combination without resolving
//   - suggest: Recommend services that complement a selection
//   - bundles: List, show, and compare curated bundles
//   - catalog: Validate and lint catalog files
//   - export: Render the dependency graph as DOT, SVG, or PNG
//   - serve: Run the HTTP resolution API
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context to allow structured progress
// tracking.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/launchforge/forgekit/pkg/buildinfo"
	"github.com/launchforge/forgekit/pkg/cache"
	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/resolve"
)

const (
	// appName is the application name used for display and env prefixes.
	appName = "forgekit"

	// envCatalog names the environment variable holding the default
	// catalog path.
	envCatalog = "FORGEKIT_CATALOG"

	// envRedis names the environment variable holding a Redis address for
	// the shared resolution cache.
	envRedis = "FORGEKIT_REDIS"

	// envMongo names the environment variable holding a MongoDB URI for
	// hosted catalogs. An explicit --catalog flag still wins.
	envMongo = "FORGEKIT_MONGO"

	// mongoDatabase is the database the hosted catalog lives in.
	mongoDatabase = "forgekit"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// catalogPath is bound to the persistent --catalog flag.
	catalogPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Forgekit resolves service selections into injection plans",
		Long:         `Forgekit is a dependency resolution engine for project scaffolding: given requested services (auth/clerk, database/postgresql) or curated bundles, it computes a validated, deterministic, conflict-free injection plan.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.catalogPath, "catalog", "", "catalog TOML file (default $FORGEKIT_CATALOG or catalog.toml)")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.orderCommand())
	root.AddCommand(c.cyclesCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.suggestCommand())
	root.AddCommand(c.bundlesCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadCatalog reads the catalog named by --catalog, $FORGEKIT_CATALOG, or
// ./catalog.toml, in that order. When $FORGEKIT_MONGO is set and no file
// is named explicitly, the catalog is snapshotted from MongoDB instead.
func (c *CLI) loadCatalog(ctx context.Context) (*catalog.Memory, error) {
	if uri := os.Getenv(envMongo); uri != "" && c.catalogPath == "" {
		return c.loadMongoCatalog(ctx, uri)
	}
	path := c.catalogPath
	if path == "" {
		path = os.Getenv(envCatalog)
	}
	if path == "" {
		path = "catalog.toml"
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

// loadMongoCatalog snapshots the hosted catalog. The connection is closed
// once the snapshot is taken; commands resolve against the in-memory copy.
func (c *CLI) loadMongoCatalog(ctx context.Context, uri string) (*catalog.Memory, error) {
	client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect catalog database: %w", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	c.Logger.Debug("loading catalog from mongodb", "database", mongoDatabase)
	cat, err := catalog.NewMongo(client.Database(mongoDatabase)).Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hosted catalog: %w", err)
	}
	return cat, nil
}

// newResolver builds a resolver over the configured catalog. The cache is
// Redis when $FORGEKIT_REDIS is set, in-memory otherwise, and disabled
// entirely with noCache.
func (c *CLI) newResolver(cmd *cobra.Command, noCache bool) (*resolve.Resolver, *catalog.Memory, error) {
	cat, err := c.loadCatalog(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	resolver := resolve.New(cat,
		resolve.WithBundleSource(cat),
		resolve.WithCache(c.newCache(cmd, noCache)),
		resolve.WithLogger(c.Logger),
	)
	return resolver, cat, nil
}

func (c *CLI) newCache(cmd *cobra.Command, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	if addr := os.Getenv(envRedis); addr != "" {
		redis, err := cache.NewRedisCache(cmd.Context(), addr)
		if err != nil {
			c.Logger.Warn("redis unavailable, using in-memory cache", "addr", addr, "err", err)
			return cache.NewMemoryCache()
		}
		return redis
	}
	return cache.NewMemoryCache()
}

// parseRefs converts positional "type/provider[@constraint]" arguments.
func parseRefs(args []string) ([]catalog.Ref, error) {
	refs := make([]catalog.Ref, 0, len(args))
	for _, arg := range args {
		ref, err := catalog.ParseRef(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// optionFlags is the set of resolution option flags shared by resolve,
// order, cycles, validate, and suggest.
type optionFlags struct {
	framework   string
	platform    string
	environment string
	optional    bool
	maxDepth    int
	strategy    string
	overrides   []string
}

// register binds the shared flags to cmd.
func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.framework, "framework", "", "target framework (e.g. nextjs)")
	cmd.Flags().StringVar(&f.platform, "platform", "", "target platform (e.g. vercel)")
	cmd.Flags().StringVar(&f.environment, "env", "", "target environment (e.g. production)")
	cmd.Flags().BoolVar(&f.optional, "optional", false, "include optional dependencies")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "limit expansion depth (0 = unlimited)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "merge strategy: prefer-newer (default), prefer-compatible, manual")
	cmd.Flags().StringArrayVar(&f.overrides, "override", nil, "manual collision override as type=provider (repeatable)")
}

// options converts the flags into resolve.Options.
func (f *optionFlags) options(logger *log.Logger) (resolve.Options, error) {
	strategy, err := resolve.ParseStrategy(f.strategy)
	if err != nil {
		return resolve.Options{}, err
	}
	opts := resolve.Options{
		Framework:       f.framework,
		Platform:        f.platform,
		Environment:     f.environment,
		IncludeOptional: f.optional,
		MaxDepth:        f.maxDepth,
		Strategy:        strategy,
		Logger:          logger,
	}
	for _, spec := range f.overrides {
		typ, provider, ok := strings.Cut(spec, "=")
		if !ok {
			return resolve.Options{}, fmt.Errorf("override must be type=provider: %q", spec)
		}
		if opts.Overrides == nil {
			opts.Overrides = make(map[catalog.ServiceType]string)
		}
		opts.Overrides[catalog.ServiceType(typ)] = provider
	}
	return opts, nil
}
