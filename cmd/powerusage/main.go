package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/janekbaraniewski/powerusage/internal/config"
	"github.com/janekbaraniewski/powerusage/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const debugEnvVar = "POWERUSAGE_DEBUG"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "powerusage",
		Short:         "powerusage tracks electricity usage against a prepaid quota.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDashboard(a)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to settings.json (default "+config.ConfigPath()+")")
	root.PersistentFlags().StringVar(&a.dataFile, "data-file", "", "usage data file (overrides data_file from config)")

	root.AddCommand(
		newStatusCommand(a),
		newRecordCommand(a),
		newMeterCommand(a),
		newResetCommand(a),
		newHistoryCommand(a),
		newCyclesCommand(a),
		newTipsCommand(),
		newVersionCommand(),
	)
	return root
}

func newLogger() zerolog.Logger {
	if os.Getenv(debugEnvVar) == "" {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}

func reportError(err error) {
	var malformed *ledger.MalformedError
	if errors.As(err, &malformed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "The data file was left untouched. Fix or move it aside and run again.")
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
