package cmd

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qnetsim/qnetsim/sim/experiment"
	"github.com/qnetsim/qnetsim/sim/replica"
	"github.com/qnetsim/qnetsim/sim/report"
)

var (
	numReplicas   int       // replicas per point
	numWorkers    int       // concurrent replicas; 0 uses GOMAXPROCS
	confidence    float64   // confidence level of the intervals
	occupancyBins int       // customers-in-system values aggregated
	sweepRates    []float64 // arrival rates to sweep
	sweepSteps    []float64 // TES intervals to sweep
	reportFormat  string    // text or csv
)

// replicateCmd runs independent replicas of every experiment point and
// reports confidence intervals
var replicateCmd = &cobra.Command{
	Use:   "replicate",
	Short: "Run independent replicas and report confidence intervals",
	Run: func(cmd *cobra.Command, args []string) {
		spec := loadSpec(cmd)
		if configPath != "" {
			for _, name := range []string{"replicas", "workers", "confidence", "arrival-rates", "intervals"} {
				if cmd.Flags().Changed(name) {
					logrus.Fatalf("--%s cannot be combined with --config; set it in the experiment file", name)
				}
			}
		} else {
			spec.Replicas = numReplicas
			spec.Workers = numWorkers
			spec.Confidence = confidence
			if len(sweepRates) > 0 || len(sweepSteps) > 0 {
				spec.Sweep = &experiment.SweepSpec{ArrivalRates: sweepRates, Intervals: sweepSteps}
			}
		}
		if err := spec.Validate(); err != nil {
			logrus.Fatalf("Invalid experiment: %v", err)
		}
		if occupancyBins < 1 {
			logrus.Fatalf("--occupancy-bins must be positive, got %d", occupancyBins)
		}

		ctx, cancel := runContext()
		defer cancel()
		startTime := time.Now()
		var reports []report.Labeled
		for _, point := range spec.Points() {
			runner := point.Spec.Runner()
			runner.OccupancyBins = occupancyBins
			logrus.Infof("Running %d replicas of %s", runner.Replicas, point.Label)
			rep, err := runner.Run(ctx, point.Spec.Factory())
			if err != nil {
				logrus.Fatalf("Point %s failed: %v", point.Label, err)
			}
			reports = append(reports, report.Labeled{Label: point.Label, Report: rep})
		}
		logrus.Infof("Replication complete in %v", time.Since(startTime))

		w, closeOutput, err := openOutput()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := report.WriteReports(w, reports, reportFormat); err != nil {
			logrus.Fatalf("Writing report: %v", err)
		}
		if err := closeOutput(); err != nil {
			logrus.Fatalf("Closing output: %v", err)
		}
	},
}

func init() {
	registerModelFlags(replicateCmd)
	replicateCmd.Flags().IntVar(&numReplicas, "replicas", 20, "Number of independent replicas per point")
	replicateCmd.Flags().IntVar(&numWorkers, "workers", 0, "Replicas run concurrently (0 = GOMAXPROCS)")
	replicateCmd.Flags().Float64Var(&confidence, "confidence", replica.DefaultConfidence, "Confidence level of the intervals")
	replicateCmd.Flags().IntVar(&occupancyBins, "occupancy-bins", replica.DefaultOccupancyBins, "Customers-in-system values in the occupancy distribution")
	replicateCmd.Flags().Float64SliceVar(&sweepRates, "arrival-rates", nil, "Comma-separated arrival rates to sweep")
	replicateCmd.Flags().Float64SliceVar(&sweepSteps, "intervals", nil, "Comma-separated TES intervals to sweep (tes variates only)")
	replicateCmd.Flags().StringVar(&reportFormat, "format", report.TableText, "Report format (text, csv)")
	rootCmd.AddCommand(replicateCmd)
}
