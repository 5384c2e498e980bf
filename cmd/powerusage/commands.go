package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/janekbaraniewski/powerusage/internal/quota"
	"github.com/janekbaraniewski/powerusage/internal/tracker"
	"github.com/janekbaraniewski/powerusage/internal/tui"
	"github.com/janekbaraniewski/powerusage/internal/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show remaining units and days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, err := a.openTracker()
			if err != nil {
				return err
			}
			defer tr.Close()

			// Pin the randomly drawn first-run quota so later commands agree.
			firstRun := !tr.Loaded()
			if firstRun {
				if err := tr.Save(); err != nil {
					return err
				}
			}
			printStatus(cmd.OutOrStdout(), tr.State(), a.cfg.UI.WarnThreshold, a.cfg.UI.CritThreshold)
			if firstRun {
				fmt.Fprintf(cmd.OutOrStdout(), "\nStarted a new cycle in %s.\n", tr.Path())
			}
			return nil
		},
	}
}

func printStatus(w io.Writer, st quota.State, warn, crit float64) {
	fmt.Fprintf(w, "Remaining Units  %s  %s / %d\n",
		tui.RenderGauge(st.UnitsPercent(), 24, warn, crit), quota.FormatUnits(st.RemainingUnits), st.TotalUnits)
	fmt.Fprintf(w, "Remaining Days   %s  %d / %d\n",
		tui.RenderGauge(st.DaysPercent(), 24, warn, crit), st.RemainingDays, st.TotalDays)
	fmt.Fprintf(w, "Readings         %d (%s units used)\n", len(st.History), quota.FormatUnits(st.UsedUnits()))
	for _, ev := range quota.ThresholdEvents(st) {
		fmt.Fprintf(w, "%s: %s\n", ev.Title, ev.Message)
	}
}

func printEvents(w io.Writer, events []quota.Event) {
	for _, ev := range events {
		if ev.IsWarning() {
			fmt.Fprintf(w, "%s: %s\n", ev.Title, ev.Message)
			continue
		}
		fmt.Fprintln(w, ev.Message)
	}
}

// recordAndSave applies fn and persists the result only when it succeeds.
func recordAndSave(w io.Writer, tr *tracker.Tracker, fn func() ([]quota.Event, error)) error {
	events, err := fn()
	if err != nil {
		return usageError(err)
	}
	if err := tr.Save(); err != nil {
		return err
	}
	printEvents(w, events)
	return nil
}

func usageError(err error) error {
	switch {
	case errors.Is(err, quota.ErrInsufficientBalance):
		return fmt.Errorf("not enough units remaining: %w", err)
	case errors.Is(err, quota.ErrInvalidAmount):
		return fmt.Errorf("please enter a valid number of units: %w", err)
	default:
		return err
	}
}

func parseUnits(s string) (float64, error) {
	units, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid units %q: %w", s, quota.ErrInvalidAmount)
	}
	return units, nil
}

func newRecordCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "record <units>",
		Short: "Record units used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := parseUnits(args[0])
			if err != nil {
				return err
			}
			tr, err := a.openTracker()
			if err != nil {
				return err
			}
			defer tr.Close()
			return recordAndSave(cmd.OutOrStdout(), tr, func() ([]quota.Event, error) {
				return tr.Record(units)
			})
		},
	}
}

func newMeterCommand(a *app) *cobra.Command {
	var custom string

	cmd := &cobra.Command{
		Use:   "meter",
		Short: "Take a smart meter reading (random unless --units is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, err := a.openTracker()
			if err != nil {
				return err
			}
			defer tr.Close()

			if cmd.Flags().Changed("units") {
				units, err := parseUnits(custom)
				if err != nil {
					return err
				}
				return recordAndSave(cmd.OutOrStdout(), tr, func() ([]quota.Event, error) {
					return tr.Record(units)
				})
			}
			return recordAndSave(cmd.OutOrStdout(), tr, func() ([]quota.Event, error) {
				units, events, err := tr.Meter()
				if err != nil {
					return nil, fmt.Errorf("meter read %s units: %w", quota.FormatUnits(units), err)
				}
				return events, nil
			})
		},
	}

	cmd.Flags().StringVar(&custom, "units", "", "custom reading instead of a random one")
	return cmd
}

func newResetCommand(a *app) *cobra.Command {
	var (
		units int
		days  int
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Start a new quota cycle",
		Long:  "Reset remaining units and days to the totals and clear the usage history. The finished cycle is archived when the archive is enabled.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, err := a.openTracker()
			if err != nil {
				return err
			}
			defer tr.Close()

			st := tr.State()
			if !cmd.Flags().Changed("units") {
				units = st.TotalUnits
			}
			if !cmd.Flags().Changed("days") {
				days = st.TotalDays
			}

			out := cmd.OutOrStdout()
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), out, "Are you sure you want to reset your stats?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Reset cancelled.")
					return nil
				}
			}

			events, err := tr.Reset(cmd.Context(), units, days)
			if err != nil {
				return err
			}
			printEvents(out, events)
			return nil
		},
	}

	cmd.Flags().IntVar(&units, "units", 0, "total units for the new cycle (default: current total)")
	cmd.Flags().IntVar(&days, "days", 0, "total days for the new cycle (default: current total)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func newHistoryCommand(a *app) *cobra.Command {
	var chart bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List usage readings of the current cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, err := a.openTracker()
			if err != nil {
				return err
			}
			defer tr.Close()

			st := tr.State()
			out := cmd.OutOrStdout()
			if len(st.History) == 0 {
				fmt.Fprintln(out, "No usage data available.")
				return nil
			}
			if chart {
				fmt.Fprintln(out, tui.RenderUsageChart(st.History, 72, 14))
				return nil
			}
			return writeHistory(out, st.History)
		},
	}

	cmd.Flags().BoolVar(&chart, "chart", false, "plot the readings instead of listing them")
	return cmd
}

func writeHistory(out io.Writer, history []quota.UsageRecord) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tUNITS USED")
	for _, rec := range history {
		fmt.Fprintf(w, "%s\t%s\n", rec.Timestamp.Format(quota.TimestampLayout), quota.FormatUnits(rec.Units))
	}
	total := lo.SumBy(history, func(r quota.UsageRecord) float64 { return r.Units })
	fmt.Fprintf(w, "TOTAL\t%s\n", quota.FormatUnits(total))
	return w.Flush()
}

func newCyclesCommand(a *app) *cobra.Command {
	var (
		limit int
		id    string
	)

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "List archived quota cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openArchive()
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("cycle archive is disabled (archive.enabled=false in %s)", a.configPath)
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if id != "" {
				rows, err := store.CycleUsage(ctx, id)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintf(out, "No readings archived for cycle %s.\n", id)
					return nil
				}
				return writeHistory(out, rows)
			}

			cycles, err := store.ListCycles(ctx, limit)
			if err != nil {
				return err
			}
			if len(cycles) == 0 {
				fmt.Fprintln(out, "No archived cycles yet.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tARCHIVED\tTOTAL UNITS\tUSED\tREMAINING\tDAYS LEFT\tREADINGS")
			for _, c := range cycles {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d/%d\t%d\n",
					c.ID,
					c.ArchivedAt.Local().Format(quota.TimestampLayout),
					c.TotalUnits,
					quota.FormatUnits(c.UnitsUsed),
					quota.FormatUnits(c.RemainingUnits),
					c.RemainingDays, c.TotalDays,
					c.Events,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of cycles to list")
	cmd.Flags().StringVar(&id, "id", "", "show the readings of one archived cycle")
	return cmd
}

func newTipsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tips",
		Short: "Show energy-saving tips",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Here are some energy-saving tips:")
			for i, tip := range quota.Tips() {
				fmt.Fprintf(out, "%d. %s\n", i+1, tip)
			}
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "powerusage "+version.String())
		},
	}
}
