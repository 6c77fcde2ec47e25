package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"combat-mc/internal/montecarlo"
	"combat-mc/internal/results"
	"combat-mc/internal/store"
)

var (
	summarizeSQLite string
	summarizeBatch  string
	summarizeList   bool
	summarizeJSON   bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [results.json]",
	Short: "Print the aggregate report of a finished batch",
	Long:  "summarize reads a results document, or a batch archived in SQLite, and prints survival and weapon statistics.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		var res []montecarlo.TrialResult
		var horizon, step float64
		switch {
		case summarizeSQLite != "":
			st, err := store.Open(ctx, summarizeSQLite)
			if err != nil {
				return err
			}
			defer st.Close()
			if summarizeList {
				batches, err := st.ListBatches(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSCENARIO\tSTATUS\tTRIALS\tSEED\tSTARTED")
				for _, b := range batches {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", b.ID, b.Scenario, b.Status, b.Trials, b.BaseSeed, b.StartedAt.Local().Format("2006-01-02 15:04:05"))
				}
				return tw.Flush()
			}
			if summarizeBatch == "" {
				return errors.New("--batch is required with --sqlite (use --list to see archived batches)")
			}
			b, r, err := st.LoadBatch(ctx, summarizeBatch)
			if err != nil {
				return err
			}
			res, horizon, step = r, b.MaxSimTime, b.StepSize
		case len(args) == 1:
			doc, err := results.ReadDocument(args[0])
			if err != nil {
				return err
			}
			res, horizon, step = doc.Results(), doc.Config.MaxSimTime, doc.Config.StepSize
		default:
			return errors.New("a results file or --sqlite is required")
		}

		sum := montecarlo.Analyze(res, horizon, step)
		if summarizeJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		}
		fmt.Fprint(out, results.RenderSummary(sum))
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeSQLite, "sqlite", "", "Read from this SQLite archive")
	summarizeCmd.Flags().StringVar(&summarizeBatch, "batch", "", "Archived batch id")
	summarizeCmd.Flags().BoolVar(&summarizeList, "list", false, "List archived batches")
	summarizeCmd.Flags().BoolVar(&summarizeJSON, "json", false, "Print the summary as JSON")
}
