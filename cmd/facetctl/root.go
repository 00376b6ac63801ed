package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facetdex/internal/config"
	logpkg "github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/wire"
)

// globals are the persistent flags shared by every command.
type globals struct {
	configPath string
	env        string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "facetctl",
		Short:         "Operate a facetdex deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to a config file (default: config/<env>.yaml)")
	root.PersistentFlags().StringVar(&g.env, "env", config.GetEnv(), "environment name")

	root.AddCommand(
		newMigrateCmd(g),
		newReindexCmd(g),
		newCompileCmd(g),
		newSearchCmd(g),
		newPagesCmd(g),
		newVersionCmd(),
	)
	return root
}

func (g *globals) loadConfig() (config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.Load(g.env)
}

// open builds the application and hands it to fn, closing it afterwards.
func (g *globals) open(ctx context.Context, fn func(*wire.App) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, err := logpkg.NewLogger(g.env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	app, err := wire.Build(ctx, cfg, wire.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(app)
}
