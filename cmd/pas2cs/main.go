package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/pas2cs/internal/cli"
	"codeberg.org/snonux/pas2cs/internal/logging"
	"codeberg.org/snonux/pas2cs/internal/models"
	"codeberg.org/snonux/pas2cs/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg := cli.LoadConfig()

	// Handle --list-models flag
	if flags.ListModels {
		lister := models.NewLister(cli.GetOpenAIKey())
		return lister.ListAvailableModels(ctx, os.Stdout)
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Journal: cfg.LogJournal}, os.Stderr)
	proc := processor.NewProcessor(flags, cfg, logger)

	switch {
	case flags.Show:
		return proc.ShowSession()
	case flags.Clear:
		return proc.ClearSession(ctx)
	case flags.Archive:
		return proc.ArchiveSession()
	case len(args) > 0:
		// A failed transpile is not a usage error.
		cmd.SilenceUsage = true
		if err := proc.ProcessFile(ctx, args[0]); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return nil
	default:
		// No input provided - launch GUI mode by default
		return proc.RunGUIMode()
	}
}
