package cmd

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/report"
)

var (
	snapshotFormat string // csv, csv-no-header, delay or text
	replicaIndex   int    // which replica's streams to draw from
)

// runCmd executes one simulation and writes its snapshot trace
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and write its statistics trace",
	Run: func(cmd *cobra.Command, args []string) {
		if !report.IsValidFormat(snapshotFormat) {
			logrus.Fatalf("Unknown --format %q; valid: %s, %s, %s, %s", snapshotFormat,
				report.FormatCSV, report.FormatCSVNoHeader, report.FormatDelay, report.FormatText)
		}
		spec := loadSpec(cmd)
		if spec.Sweep != nil {
			logrus.Warnf("run ignores the sweep section; use replicate to run every point")
			spec.Sweep = nil
		}
		if err := spec.Validate(); err != nil {
			logrus.Fatalf("Invalid experiment: %v", err)
		}
		if replicaIndex < 0 {
			logrus.Fatalf("--replica must be non-negative, got %d", replicaIndex)
		}

		model, err := spec.NewModel(replicaIndex, true)
		if err != nil {
			logrus.Fatalf("Failed to build model: %v", err)
		}
		defer func() {
			if err := model.Close(); err != nil {
				logrus.Warnf("closing replay files: %v", err)
			}
		}()

		ctx, cancel := runContext()
		defer cancel()
		startTime := time.Now()
		res, err := model.Run(ctx)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %v: clock=%.6f departures=%d events=%d", time.Since(startTime), res.Clock, res.Departures, res.Events)
		if res.Exhausted {
			logrus.Warnf("Replay streams ran out after %d departures; the trace is partial", res.Departures)
		}

		w, closeOutput, err := openOutput()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := report.WriteSnapshots(w, res.Snapshots, snapshotFormat); err != nil {
			logrus.Fatalf("Writing statistics: %v", err)
		}
		if err := closeOutput(); err != nil {
			logrus.Fatalf("Closing output: %v", err)
		}
		printNodeResults(res)
	},
}

// printNodeResults logs the per-node end-of-run figures.
func printNodeResults(res *sim.Result) {
	for _, n := range res.Nodes {
		logrus.Infof("%s: utilization=%.6f arrivals=%d departures=%d mean delay=%.6f queue=%d",
			n.ID, n.Utilization, n.Arrivals, n.Departures, n.MeanDelay, n.QueueSize)
		for i, c := range n.Histogram {
			logrus.Debugf("%s: queue %s: %d", n.ID, sim.BinLabel(i), c)
		}
	}
	if res.Feedbacks > 0 {
		logrus.Infof("feedback transfers: %d", res.Feedbacks)
	}
	logrus.Infof("summary: mean delay=%.6f mean in system=%.6f mean utilization=%.6f",
		res.Summary.MeanDelay, res.Summary.MeanInSystem, res.Summary.MeanUtilization)
}

func init() {
	registerModelFlags(runCmd)
	runCmd.Flags().StringVar(&snapshotFormat, "format", report.FormatCSV, "Output format (csv, csv-no-header, delay, text)")
	runCmd.Flags().IntVar(&replicaIndex, "replica", 0, "Replica index whose random streams are used")
	rootCmd.AddCommand(runCmd)
}
