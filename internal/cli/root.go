// Package cli implements the fiscalctl operator commands.
package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/repository/postgres"
	redisrepo "fiscaldoc/internal/repository/redis"
)

var version = "dev"

// Deps are the collaborators the commands resolve lazily, so help and
// calculation never need a database.
type Deps struct {
	LoadConfig func() (*config.Config, error)
	// OpenSeriesStore returns the configured store and a release func.
	OpenSeriesStore func(ctx context.Context, cfg *config.Config) (port.SeriesStore, func(), error)
	Logger          logrus.FieldLogger
}

// DefaultDeps wires the commands to environment configuration.
func DefaultDeps() Deps {
	return Deps{
		LoadConfig:      config.Load,
		OpenSeriesStore: openSeriesStore,
	}
}

type app struct {
	deps   Deps
	output string
}

// NewRootCommand builds the fiscalctl command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	a := &app{deps: deps}

	root := &cobra.Command{
		Use:   "fiscalctl",
		Short: "Operator tooling for the fiscal document engine",
		Long: `fiscalctl previews cart calculations and administers numbering series
against the same stores the server uses. Configuration is read from FISCAL_*
environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(a.calcCommand(), a.seriesCommand())
	return root
}

func (a *app) config() (*config.Config, error) {
	cfg, err := a.deps.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if a.deps.Logger == nil {
		a.deps.Logger = logger.New(cfg.Log)
	}
	return cfg, nil
}

func (a *app) jsonOutput() (bool, error) {
	switch a.output {
	case "json":
		return true, nil
	case "text", "":
		return false, nil
	default:
		return false, fmt.Errorf("unknown output format %q", a.output)
	}
}

func openSeriesStore(ctx context.Context, cfg *config.Config) (port.SeriesStore, func(), error) {
	switch cfg.Series.Store {
	case "postgres":
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		return postgres.NewSeriesStore(db), func() { _ = db.Close() }, nil
	case "redis":
		client, err := redisrepo.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return redisrepo.NewSeriesStore(client, redisrepo.KeyPrefix), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("series store %q is process-local and cannot be administered", cfg.Series.Store)
	}
}
