package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCount int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded shots",
	Long: `Show the most recent shots from the history database and the mean
overshoot of the ones that stopped on the target weight.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 10, "number of shots to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		return errors.New("history.path is not configured")
	}

	shots, err := a.db.Recent(historyCount)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTARGET\tWEIGHT\tTIME\tSTOP\tOVERSHOOT")
	for _, s := range shots {
		fmt.Fprintf(tw, "%d\t%s\t%.1fg\t%.1fg\t%.1fs\t%s\t%+.2fg\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Target, s.Weight, s.Elapsed, s.StopReason, s.Overshoot())
	}
	tw.Flush()

	mean, n, err := a.db.MeanOvershoot(historyCount)
	if err != nil {
		return err
	}
	if n > 0 {
		fmt.Fprintf(out, "\nmean overshoot of %d shots: %+.2fg\n", n, mean)
	}
	return nil
}
