package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/keystone/internal/cliconfig"
	"github.com/bft-labs/keystone/internal/tracing"
	"github.com/bft-labs/keystone/pkg/keystone"
	"github.com/bft-labs/keystone/pkg/lifecycle"
	"github.com/bft-labs/keystone/pkg/log"
	"github.com/bft-labs/keystone/pkg/schema"
	"github.com/bft-labs/keystone/plugins/componentwatch"
	"github.com/bft-labs/keystone/plugins/healthserver"
)

const helpDescription = `
Install and upgrade the time-series and relational schema, then coordinate
the lifecycle of long-running components.

Profiles:
  install   apply every artifact of the manifest that is not yet recorded
  upgrade   apply, per store, the artifacts newer than the latest applied version
  runtime   never touch the schema; serve health, metrics and component lifecycles

Every applied artifact is recorded with its checksum. Editing an applied
script is reported as a conflict, never re-applied.

Exit codes: 0 ok, 2 schema conflict, 3 statement failed, 4 ledger unavailable,
1 anything else.
`

var exampleUsage = strings.TrimSpace(`
  keystone install --data-dir /var/lib/keystone
  keystone plan --profile upgrade
  keystone serve --components-dir /etc/keystone/components --listen-addr :9464
  KEYSTONE_PROFILE=upgrade keystone
`)

// componentReportInterval is how often serve logs the component summary.
const componentReportInterval = time.Minute

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return keystone.Version
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		boot := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()
		boot.Error().Err(err).Msg("keystone")
		return exitCode(err)
	}
	return 0
}

// exitCode maps an error to the process exit code. A ledger failure that
// follows a statement failure carries both errors and reports the ledger.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, schema.ErrSchemaConflict):
		return 2
	case errors.Is(err, schema.ErrPersistence):
		return 4
	case errors.Is(err, schema.ErrSchemaApplication):
		return 3
	default:
		return 1
	}
}

type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	stdout  io.Writer
	stderr  io.Writer
	logger  log.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{
		cfg:    cliconfig.DefaultConfig(),
		stdout: stdout,
		stderr: stderr,
		logger: log.NewNoopLogger(),
	}

	root := &cobra.Command{
		Use:               "keystone",
		Short:             "Schema installation and component lifecycle coordinator",
		Long:              strings.TrimSpace(helpDescription),
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := schema.ParseProfile(c.cfg.Profile)
			if err != nil {
				return err
			}
			if profile == schema.ProfileRuntime {
				return c.serve(cmd.Context())
			}
			return c.apply(cmd.Context(), profile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.keystone/config.toml)")
	flags.StringVar(&c.cfg.ResourcesDir, "resources-dir", c.cfg.ResourcesDir, "directory holding the manifest and scripts (default: built-in resources)")
	flags.StringVar(&c.cfg.Manifest, "manifest", c.cfg.Manifest, "manifest resource name")
	flags.StringVar(&c.cfg.DataDir, "data-dir", c.cfg.DataDir, "directory for store databases and ledger files")
	flags.StringVar(&c.cfg.TimeseriesDB, "timeseries-db", c.cfg.TimeseriesDB, "time-series store database (default: <data-dir>/timeseries.db)")
	flags.StringVar(&c.cfg.RelationalDB, "relational-db", c.cfg.RelationalDB, "relational store database (default: <data-dir>/relational.db)")
	flags.StringVar(&c.cfg.Ledger, "ledger", c.cfg.Ledger, "ledger backend: store (table in each store) or file (JSON documents)")
	flags.StringVar(&c.cfg.LedgerDir, "ledger-dir", c.cfg.LedgerDir, "directory for file ledgers (default: data-dir)")
	flags.StringVar(&c.cfg.Profile, "profile", c.cfg.Profile, "deployment profile: install, upgrade or runtime")
	flags.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level: debug, info, warn or error")
	flags.StringVar(&c.cfg.LogFormat, "log-format", c.cfg.LogFormat, "log format: console or json")
	flags.StringVar(&c.cfg.ListenAddr, "listen-addr", c.cfg.ListenAddr, "health and metrics listen address (empty disables)")
	flags.StringVar(&c.cfg.ComponentsDir, "components-dir", c.cfg.ComponentsDir, "directory of component descriptors to watch (empty disables)")
	flags.StringVar(&c.cfg.TraceEndpoint, "trace-endpoint", c.cfg.TraceEndpoint, "OTLP/gRPC collector for schema spans (empty disables)")
	flags.BoolVar(&c.cfg.TraceInsecure, "trace-insecure", c.cfg.TraceInsecure, "connect to the trace collector without TLS")
	flags.IntVar(&c.cfg.QueueSize, "queue-size", c.cfg.QueueSize, "pending lifecycle events per subscriber")
	flags.DurationVar(&c.cfg.ConnectTimeout, "connect-timeout", c.cfg.ConnectTimeout, "how long to retry store connections")
	flags.DurationVar(&c.cfg.ShutdownTimeout, "shutdown-timeout", c.cfg.ShutdownTimeout, "how long to wait for subscribers to drain on shutdown")

	root.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Apply every manifest artifact not yet recorded in its ledger",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.apply(cmd.Context(), schema.ProfileInstall)
			},
		},
		&cobra.Command{
			Use:   "upgrade",
			Short: "Apply, per store, the artifacts newer than the latest applied version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.apply(cmd.Context(), schema.ProfileUpgrade)
			},
		},
		&cobra.Command{
			Use:   "plan",
			Short: "Show what install (or --profile upgrade) would apply, without executing anything",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.plan(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run the lifecycle coordinator with health, metrics and component watching",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.serve(cmd.Context())
			},
		},
	)

	return root
}

// loadConfig applies the config file, then KEYSTONE_* variables, then
// flags, and builds the logger.
func (c *cli) loadConfig(cmd *cobra.Command, _ []string) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}

	logger, err := cliconfig.NewLogger(c.cfg, c.stderr)
	if err != nil {
		return err
	}
	c.logger = logger

	c.logger.Info("configuration", log.Any("config", c.cfg))
	return nil
}

// newKeystone opens the stores and, when configured, the trace exporter.
// The returned function releases both.
func (c *cli) newKeystone(ctx context.Context, opts ...keystone.Option) (*keystone.Keystone, func() error, error) {
	stores, closeStores, err := openStores(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, nil, err
	}

	if c.cfg.TraceEndpoint != "" {
		tp, err := tracing.NewProvider(ctx, tracing.Config{
			Endpoint:       c.cfg.TraceEndpoint,
			Insecure:       c.cfg.TraceInsecure,
			ServiceName:    "keystone",
			ServiceVersion: getVersion(),
		})
		if err != nil {
			_ = closeStores()
			return nil, nil, err
		}
		opts = append(opts, keystone.WithTracerProvider(tp))

		storesCloser := closeStores
		closeStores = func() error {
			flushCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(flushCtx); err != nil {
				c.logger.Warn("flush spans", log.Err(err))
			}
			return storesCloser()
		}
		c.logger.Info("tracing enabled", log.String("endpoint", c.cfg.TraceEndpoint))
	}

	k, err := keystone.New(keystone.Config{
		Loader:          resourceLoader(c.cfg),
		Manifest:        c.cfg.Manifest,
		Stores:          stores,
		QueueSize:       uint64(c.cfg.QueueSize),
		ShutdownTimeout: c.cfg.ShutdownTimeout,
	}, append([]keystone.Option{keystone.WithLogger(c.logger)}, opts...)...)
	if err != nil {
		_ = closeStores()
		return nil, nil, fmt.Errorf("create keystone: %w", err)
	}
	return k, closeStores, nil
}

func (c *cli) apply(ctx context.Context, profile schema.Profile) (err error) {
	k, closeStores, err := c.newKeystone(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStores(); closeErr != nil && err == nil {
			err = fmt.Errorf("close stores: %w", closeErr)
		}
	}()

	report, err := k.Run(ctx, profile)
	printReport(c.stdout, report)
	return err
}

func (c *cli) plan(ctx context.Context) (err error) {
	profile, err := schema.ParseProfile(c.cfg.Profile)
	if err != nil {
		return err
	}
	if profile == schema.ProfileRuntime {
		profile = schema.ProfileInstall
	}

	k, closeStores, err := c.newKeystone(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStores(); closeErr != nil && err == nil {
			err = fmt.Errorf("close stores: %w", closeErr)
		}
	}()

	entries, err := k.Plan(ctx, profile)
	if err != nil {
		return err
	}
	printPlan(c.stdout, profile, entries)
	return nil
}

func (c *cli) serve(ctx context.Context) (err error) {
	k, closeStores, err := c.newKeystone(ctx,
		componentwatch.WithComponentWatch(componentwatch.Config{Dir: c.cfg.ComponentsDir}),
		healthserver.WithHealthServer(healthserver.Config{Addr: c.cfg.ListenAddr}),
	)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStores(); closeErr != nil && err == nil {
			err = fmt.Errorf("close stores: %w", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := k.Start(ctx); err != nil {
		return fmt.Errorf("start keystone: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			c.logger.Info("received signal, stopping", log.String("signal", sig.String()))
		case <-gctx.Done():
		}
		cancel()
		return nil
	})
	g.Go(func() error {
		return c.report(gctx, k)
	})
	err = g.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer stopCancel()
	if stopErr := k.Stop(stopCtx); stopErr != nil {
		err = errors.Join(err, fmt.Errorf("stop keystone: %w", stopErr))
	}
	return err
}

// report logs whether the schema is installed, then a component summary
// every componentReportInterval until ctx is done.
func (c *cli) report(ctx context.Context, k *keystone.Keystone) error {
	entries, err := k.Plan(ctx, schema.ProfileInstall)
	switch {
	case err != nil:
		c.logger.Warn("schema status unavailable", log.Err(err))
	case schema.Ready(entries):
		c.logger.Info("schema ready", log.Int("artifacts", len(entries)))
	default:
		c.logger.Warn("schema not ready, run keystone install", log.Int("artifacts", len(entries)))
	}

	ticker := time.NewTicker(componentReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			counts := map[lifecycle.Status]int{}
			for _, s := range k.Registry().Snapshot() {
				counts[s.Status]++
			}
			fields := make([]log.Field, 0, len(counts))
			for _, s := range lifecycle.AllStatuses {
				if n := counts[s]; n > 0 {
					fields = append(fields, log.Int(strings.ToLower(s.String()), n))
				}
			}
			c.logger.Info("components", fields...)
		}
	}
}

func printReport(w io.Writer, report schema.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ARTIFACT\tSTORE\tVERSION\tRESULT\tDETAIL")
	for _, r := range report.Results {
		detail := r.Reason
		if r.FailedIndex > 0 {
			detail = fmt.Sprintf("statement %d: %s", r.FailedIndex, r.Reason)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.Artifact, r.Store, r.Version, r.Outcome, detail)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%s: %d applied, %d skipped, %d failed\n", report.Profile,
		report.Count(schema.Applied), report.Count(schema.Skipped), report.Count(schema.Failed))
}

func printPlan(w io.Writer, profile schema.Profile, entries []schema.PlanEntry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ARTIFACT\tSTORE\tVERSION\tSTATUS\tCHECKSUM")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.Artifact, e.Store, e.Version, e.Status, e.Checksum[:12])
	}
	_ = tw.Flush()

	if schema.Ready(entries) {
		fmt.Fprintf(w, "%s: up to date\n", profile)
	} else {
		fmt.Fprintf(w, "%s: changes pending\n", profile)
	}
}
