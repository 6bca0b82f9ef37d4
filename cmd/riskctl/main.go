// Command riskctl evaluates clinical bundles and administers the risk
// engine's storage from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maternity-risk-server/internal/app"
	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/config"
	"github.com/maternity-risk-server/internal/logging"
	"github.com/maternity-risk-server/internal/service"
)

type rootOptions struct {
	configFile string
	logLevel   string
	lite       bool
	dataDir    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "riskctl",
		Short:         "Maternity clinical risk stratification tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file for the PostgreSQL-backed engine")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.lite, "lite", false, "use the standalone SQLite data directory instead of PostgreSQL")
	flags.StringVar(&opts.dataDir, "data-dir", "", "standalone data directory (implies --lite)")

	rootCmd.AddCommand(evaluateCmd(opts))
	rootCmd.AddCommand(categoriesCmd(opts))
	rootCmd.AddCommand(assessmentsCmd(opts))
	rootCmd.AddCommand(migrateCmd(opts))
	rootCmd.AddCommand(setupCmd())

	return rootCmd
}

// engine is an opened risk engine with the resources backing it.
type engine struct {
	risk    *service.RiskService
	history assessment.Store
	close   func() error
}

func (o *rootOptions) logger() (*logrus.Logger, error) {
	return logging.New(o.logLevel, "text", "stderr")
}

func (o *rootOptions) configManager() (*config.Manager, error) {
	var (
		m   *config.Manager
		err error
	)
	if o.configFile != "" {
		m, err = config.NewManagerFromFile(o.configFile)
	} else {
		m, err = config.NewManager()
	}
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return m, nil
}

func (o *rootOptions) liteConfig() *config.LiteConfig {
	cfg := config.LoadLiteConfig()
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	return cfg
}

func (o *rootOptions) openEngine(ctx context.Context) (*engine, error) {
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}

	if o.lite || o.dataDir != "" {
		stack, err := app.BuildLite(ctx, o.liteConfig(), nil, logger)
		if err != nil {
			return nil, err
		}
		return &engine{risk: stack.Engine, history: stack.History, close: stack.Close}, nil
	}

	m, err := o.configManager()
	if err != nil {
		return nil, err
	}
	stack, err := app.Build(ctx, m, logger, app.Options{})
	if err != nil {
		return nil, err
	}
	return &engine{risk: stack.Engine, history: stack.History, close: stack.Close}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
