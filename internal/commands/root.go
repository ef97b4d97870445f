// Package commands implements spendctl. Every invocation is a short-lived tab
// over the configured backend: it loads, applies one change, publishes it and
// exits.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"spendsync/internal/cli"
	"spendsync/internal/config"
	"spendsync/internal/core"
	"spendsync/internal/ledger"
	"spendsync/internal/log"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	session *cli.Session
	loadErr error
	asJSON  bool
}

// Execute runs spendctl with args and releases the backend afterwards,
// whether or not the command succeeded.
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCommand(a, version)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

// newRootCommand creates the root CLI command with all subcommands registered.
func newRootCommand(a *app, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "spendctl",
		Short:   "Record and review expenses shared with every open spendsync tab",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		newAddCommand(a),
		newDeleteCommand(a),
		newListCommand(a),
		newSummaryCommand(a),
		newProfileCommand(a),
		newRecoverCommand(a),
	)
	return rootCmd
}

func (a *app) open(cmd *cobra.Command) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	a.cfg = cfg

	logCfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logCfg.Level = lvl
	}
	logCfg.Component = log.ComponentCLI
	logCfg.Output = cmd.ErrOrStderr()
	a.logger = log.New(logCfg)

	a.session, a.loadErr = cli.OpenTab(cmd.Context(), cfg, a.logger)
	if a.session == nil {
		return a.loadErr
	}
	return nil
}

func (a *app) close() error {
	if a.session == nil {
		return nil
	}
	err := a.session.Cleanup()
	a.session = nil
	return err
}

// loaded fails when the stored data could not be read at startup.
func (a *app) loaded() error {
	if a.loadErr == nil {
		return nil
	}
	if errors.Is(a.loadErr, ledger.ErrCorrupt) {
		return fmt.Errorf("%w (run 'spendctl recover' to reset the stored expenses)", a.loadErr)
	}
	return a.loadErr
}

func (a *app) money(amount core.Amount) string {
	return amount.Display(a.cfg.Currency)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
