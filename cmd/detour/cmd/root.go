// Package cmd provides the command-line interface of the detour demo.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"

	"github.com/danpasecinic/detour"
	"github.com/danpasecinic/detour/config"
)

type app struct {
	configPath string
	envFiles   []string

	cfg    *config.Config
	logger *zap.Logger
	rt     *detour.Runtime
}

// NewRootCmd builds the command tree. Each invocation gets its own runtime.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "detour",
		Short: "Detour demo runs the interception and injection scenarios.",
		Long: `Detour demo installs decorator pipelines on a few package-level functions, ` +
			`injects their dependencies and prints what happens. Settings come from an ` +
			`optional YAML file and DETOUR_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env", []string{".env"}, ".env files loaded before reading the environment")

	root.AddCommand(newRunCmd(a), newGraphCmd(a))
	return root
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath, a.envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = cfg.Log.NewZap().Named("detour")
	atexit.Register(
		func() {
			_ = a.logger.Sync()
		},
	)
	a.rt = detour.New(detour.WithConfig(cfg))
	return nil
}

func (a *app) teardown() error {
	if a.rt == nil {
		return nil
	}
	err := a.rt.Close()
	_ = a.logger.Sync()
	return err
}
