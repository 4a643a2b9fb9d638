package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/listingclean/internal/config"
	"github.com/JonMunkholm/listingclean/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	cfg      *config.Config
	closeLog func() error

	schemaPath       string
	dropIndexColumns bool
}

// rootCommand builds the command tree.
func rootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "listingclean COMMAND [flags]",
		Short:         "Clean listing CSV exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.schemaPath, "schema", "", "Expected-columns document (JSON or YAML); overrides SCHEMA_PATH")
	flags.BoolVar(&a.dropIndexColumns, "drop-index-columns", false, "Remove exported row-index columns; overrides DROP_INDEX_COLUMNS")

	rootCmd.AddCommand(
		cleanCmd(a),
		processCmd(a),
		sweepCmd(a),
		serveCmd(a),
	)

	return rootCmd
}

// init loads configuration, applies flag overrides and sets up logging.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("schema") {
		cfg.Pipeline.SchemaPath = a.schemaPath
	}
	if flags.Changed("drop-index-columns") {
		cfg.Pipeline.DropIndexColumns = a.dropIndexColumns
	}

	closeLog, err := logging.Setup(logging.Options{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Dir:          cfg.Logging.Dir,
		RunningInGCP: cfg.Logging.RunningInGCP,
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	a.cfg = cfg
	a.closeLog = closeLog
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		return 1
	}
	return 0
}
