package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/config"
	"github.com/calvinmclean/autobrew/logging"
	"github.com/calvinmclean/autobrew/sim"

	"github.com/spf13/cobra"
)

var (
	simTarget float32
	simGain   time.Duration
	simShots  int
	simTune   bool
	simRecord bool
	simSeed   uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Pull shots on a simulated machine",
	Long: `Run the extraction controller against a simulated pump and scale. The
screen is printed as text and a summary of each shot is shown at the end.

Examples:
  # One 36g shot with the configured machine
  autobrew simulate --target 36

  # Five shots, learning the overshoot gain after each one
  autobrew simulate --shots 5 --tune`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().Float32Var(&simTarget, "target", 0, "target weight in grams (default from config)")
	simulateCmd.Flags().DurationVar(&simGain, "gain", 0, "overshoot gain (default from config)")
	simulateCmd.Flags().IntVar(&simShots, "shots", 1, "number of shots")
	simulateCmd.Flags().BoolVar(&simTune, "tune", false, "apply the suggested gain after each shot")
	simulateCmd.Flags().BoolVar(&simRecord, "record", false, "record the shots like the monitor does")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 1, "seed for the scale noise")
}

func simParams(c config.SimConfig, seed uint64) sim.Params {
	return sim.Params{
		FlowRate:     c.FlowRate,
		Preinfusion:  c.Preinfusion,
		DripWeight:   c.DripWeight,
		DripTau:      c.DripTau,
		Noise:        c.Noise,
		Tick:         c.Tick,
		ReadDuration: c.ReadDuration,
		Seed:         seed,
	}
}

type shotResult struct {
	target, weight, elapsed float32
	gain                    time.Duration
}

func runSimulate(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if simShots < 1 {
		return fmt.Errorf("invalid number of shots: %d", simShots)
	}

	target := a.cfg.Sim.Target
	if simTarget > 0 {
		target = simTarget
	}

	brewCfg := a.cfg.Brew()
	if simGain > 0 {
		brewCfg.OvershootGain = simGain
	}

	ctx := cmd.Context()
	eventLog := logging.NewEventLogger(a.log)
	recorder := a.newRecorder()

	observe := func(e autobrew.Event) {
		eventLog.Log(e)
		if simRecord {
			recorder.Handle(ctx, e)
		}
	}

	out := cmd.OutOrStdout()

	s, err := sim.New(simParams(a.cfg.Sim, simSeed), brewCfg, out, observe)
	if err != nil {
		return err
	}

	results, err := pullShots(ctx, s, target, simShots, simTune)
	printResults(out, results)
	return err
}

func pullShots(ctx context.Context, s *sim.Sim, target float32, shots int, tune bool) ([]shotResult, error) {
	var results []shotResult
	for i := 0; i < shots; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		gain := s.Controller.Gain()
		rec, err := s.RunShot(target)
		if err != nil {
			return results, fmt.Errorf("shot %d: %w", i+1, err)
		}
		results = append(results, shotResult{rec.Target, rec.Weight, rec.Elapsed, gain})

		if tune {
			s.Controller.ApplySuggestedGain()
		}
	}
	return results, nil
}

func printResults(w io.Writer, results []shotResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHOT\tGAIN\tTARGET\tWEIGHT\tERROR\tTIME")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%.1fg\t%.1fg\t%+.1fg\t%.1fs\n", i+1, r.gain, r.target, r.weight, r.weight-r.target, r.elapsed)
	}
	tw.Flush()
}
