package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"combat-mc/internal/montecarlo"
	"combat-mc/internal/results"
	"combat-mc/internal/world"
)

var (
	replayFlags batchFlags
	replayTrial int
	replayJSON  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run one trial of a batch",
	Long:  "replay rebuilds trial i with seed base+i, printing each engagement as it happens and the final survival table. The outcome equals trial i of the full batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := replayFlags.load(cmd)
		if err != nil {
			return err
		}
		if replayTrial < 0 || replayTrial >= cfg.NumRuns {
			return fmt.Errorf("trial %d out of range [0, %d)", replayTrial, cfg.NumRuns)
		}
		bc, err := batchConfig(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		color := out == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
		ex := &montecarlo.Executor{Builder: world.NewBuilder()}
		if !replayJSON {
			ex.OnEvent = func(_ int, ev montecarlo.EngagementEvent) {
				fmt.Fprintln(out, results.EventLine(ev, color))
			}
		}
		res, err := ex.RunTrial(cmd.Context(), bc.Scenario, montecarlo.TrialSpec{
			Index:     replayTrial,
			Seed:      montecarlo.Seed(bc.BaseSeed, replayTrial),
			Horizon:   bc.MaxSimTime,
			StepSize:  bc.StepSize,
			ChunkSize: bc.ChunkSize,
		})
		if err != nil {
			return err
		}

		if replayJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, results.TrialLine(res, color))
			fmt.Fprintln(out, results.RenderSurvival(res.EntitySurvival))
		}
		if res.Error != nil {
			return res.Error
		}
		return nil
	},
}

func init() {
	replayFlags.register(replayCmd)
	replayCmd.Flags().IntVar(&replayTrial, "trial", 0, "Trial index to replay")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print the trial result as JSON")
}
