package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/duolaunch/internal/config"
	"github.com/giantswarm/duolaunch/internal/history"
)

// errHistoryDisabled is returned when history_db is not configured.
var errHistoryDisabled = fmt.Errorf("%w: history is disabled (set history_db)", config.ErrInvalidConfig)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			return listHistory(cmd.Context(), flags.configPath, limit, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions to show")
	return cmd
}

func listHistory(ctx context.Context, configPath string, limit int, out, console io.Writer) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	res := cfg.Resolve()
	if res.HistoryDB == "" {
		return errHistoryDisabled
	}

	logger, closer, err := newLogger(cfg, "", console)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck // no file to close

	store, err := history.Open(ctx, res.HistoryDB, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "no sessions recorded")
		return nil
	}
	return printHistory(out, entries)
}

// printHistory writes entries as an aligned table.
func printHistory(out io.Writer, entries []history.Entry) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tOUTCOME\tAPP EXIT\tEXIT\tKILLED\tERROR")
	for _, e := range entries {
		appExit := "-"
		if e.ForegroundExitCode >= 0 {
			appExit = fmt.Sprint(e.ForegroundExitCode)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			e.ID,
			e.StartedAt.Local().Format(time.DateTime),
			e.Duration().Round(time.Second),
			e.Outcome,
			appExit,
			e.ExitCode,
			e.ForcedStops,
			e.Error,
		)
	}
	return tw.Flush()
}
