package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/experiment"
	"github.com/qnetsim/qnetsim/sim/variate"
)

var (
	uniformsPath string  // raw uniforms consumed by traffic
	trafficRate  float64 // exponential rate of the generated times
	numUniforms  int     // uniforms written by the uniforms command
	lowerBound   float64 // lower bound of generated uniforms
	upperBound   float64 // upper bound of generated uniforms
)

// trafficCmd turns a file of raw uniforms into TES-correlated exponential times
var trafficCmd = &cobra.Command{
	Use:   "traffic",
	Short: "Transform raw uniforms into TES-correlated exponential times",
	Run: func(cmd *cobra.Command, args []string) {
		params := variate.SymmetricTES(tesInterval, tesXi)
		if err := params.Validate(); err != nil {
			logrus.Fatalf("Invalid TES parameters: %v", err)
		}
		if trafficRate <= 0 {
			logrus.Fatalf("--rate must be positive, got %v", trafficRate)
		}
		f, err := os.Open(uniformsPath)
		if err != nil {
			logrus.Fatalf("Failed to open uniforms: %v", err)
		}
		uniforms, err := variate.ReadValues("uniform", f)
		_ = f.Close()
		if err != nil {
			logrus.Fatalf("Failed to read uniforms: %v", err)
		}
		for i, u := range uniforms {
			if u >= 1 {
				logrus.Fatalf("uniform %d is %v; values must lie in [0, 1)", i, u)
			}
		}
		times := variate.GenerateTES(params, trafficRate, uniforms)
		if err := writeValues(times); err != nil {
			logrus.Fatalf("Writing times: %v", err)
		}
		logrus.Infof("Generated %d correlated times at rate %v", len(times), trafficRate)
	},
}

// uniformsCmd writes a stream of uniforms for traffic or for inspection
var uniformsCmd = &cobra.Command{
	Use:   "uniforms",
	Short: "Write uniform random numbers in [lower, upper)",
	Run: func(cmd *cobra.Command, args []string) {
		if numUniforms < 0 {
			logrus.Fatalf("--count must be non-negative, got %d", numUniforms)
		}
		if !(lowerBound < upperBound) {
			logrus.Fatalf("--lower must be below --upper, got [%v, %v)", lowerBound, upperBound)
		}
		var u variate.Uniform
		switch rngKind {
		case experiment.RNGPartitioned:
			u = sim.NewPartitionedRNG(sim.NewSimulationKey(seed)).ForSubsystem("uniforms")
		case experiment.RNGStreams:
			u = variate.NewStreamUniform(seed, "uniforms")
		default:
			logrus.Fatalf("Unknown --rng %q; valid: partitioned, mrg32k3a", rngKind)
		}
		values := make([]float64, numUniforms)
		for i := range values {
			values[i] = lowerBound + (upperBound-lowerBound)*u.Float64()
		}
		if err := writeValues(values); err != nil {
			logrus.Fatalf("Writing uniforms: %v", err)
		}
	},
}

// writeValues writes one value per line to --output.
func writeValues(values []float64) error {
	w, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, v := range values {
		if _, err := fmt.Fprintln(bw, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			_ = closeOutput()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = closeOutput()
		return err
	}
	return closeOutput()
}

func init() {
	trafficCmd.Flags().StringVar(&uniformsPath, "input", "", "File of raw uniforms, one per line")
	trafficCmd.Flags().Float64Var(&trafficRate, "rate", 1, "Exponential rate of the generated times")
	trafficCmd.Flags().Float64Var(&tesInterval, "interval", 0.1, "TES innovation half-width")
	trafficCmd.Flags().Float64Var(&tesXi, "xi", 0.7, "TES stitching parameter in (0, 1)")
	_ = trafficCmd.MarkFlagRequired("input")

	uniformsCmd.Flags().IntVar(&numUniforms, "count", 110000, "Number of uniforms")
	uniformsCmd.Flags().Float64Var(&lowerBound, "lower", 0, "Inclusive lower bound")
	uniformsCmd.Flags().Float64Var(&upperBound, "upper", 1, "Exclusive upper bound")
	uniformsCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the partitioned RNG")
	uniformsCmd.Flags().StringVar(&rngKind, "rng", experiment.RNGPartitioned, "Random stream (partitioned, mrg32k3a)")

	rootCmd.AddCommand(trafficCmd, uniformsCmd)
}
