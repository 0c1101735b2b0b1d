package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/replica"
)

// Aggregate table formats.
const (
	TableText = "text"
	TableCSV  = "csv"
)

var aggregateColumns = []string{"point", "name", "bin", "n", "mean", "stddev", "half_width", "lower", "upper"}

// Labeled is one experiment point's aggregate report.
type Labeled struct {
	Label  string
	Report *replica.Report
}

// HistogramBinLabel names bin i of a report histogram. Queue histograms use
// the backlog bounds; occupancy bins are the customer count itself.
func HistogramBinLabel(name string, i int) string {
	if strings.HasSuffix(name, "."+replica.HistogramQueue) {
		return sim.BinLabel(i)
	}
	return strconv.Itoa(i)
}

// WriteReports writes aggregate tables for every point in the given format.
func WriteReports(w io.Writer, reports []Labeled, format string) error {
	switch format {
	case TableCSV:
		return writeReportsCSV(w, reports)
	case TableText:
		for _, r := range reports {
			if err := writeReportText(w, r); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown report format %q; valid: %s, %s", format, TableText, TableCSV)
}

func writeReportsCSV(w io.Writer, reports []Labeled) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(aggregateColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range reports {
		for _, name := range r.Report.MetricNames() {
			if err := writer.Write(aggregateRow(r.Label, name, "", r.Report.Metrics[name])); err != nil {
				return fmt.Errorf("writing metric %q: %w", name, err)
			}
		}
		for _, name := range r.Report.HistogramNames() {
			for i, agg := range r.Report.Histograms[name] {
				if err := writer.Write(aggregateRow(r.Label, name, HistogramBinLabel(name, i), agg)); err != nil {
					return fmt.Errorf("writing histogram %q bin %d: %w", name, i, err)
				}
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func aggregateRow(label, name, bin string, a replica.Aggregate) []string {
	return []string{
		label,
		name,
		bin,
		strconv.Itoa(a.N),
		Decimal(a.Mean),
		Decimal(a.StdDev),
		Decimal(a.HalfWidth),
		Decimal(a.Lower()),
		Decimal(a.Upper()),
	}
}

func writeReportText(w io.Writer, r Labeled) error {
	rep := r.Report
	if _, err := fmt.Fprintf(w, "=== %s: %d replicas, %.0f%% confidence ===\n", r.Label, rep.Replicas, rep.Confidence*100); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	if rep.Exhausted > 0 {
		if _, err := fmt.Fprintf(w, "(%d replicas ended on an exhausted replay stream)\n", rep.Exhausted); err != nil {
			return fmt.Errorf("writing report header: %w", err)
		}
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "metric\tmean\t± half-width\tstddev")
	for _, name := range rep.MetricNames() {
		a := rep.Metrics[name]
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%.6f\n", name, a.Mean, a.HalfWidth, a.StdDev)
	}
	for _, name := range rep.HistogramNames() {
		fmt.Fprintf(tw, "\n%s bin\tmean\t± half-width\tstddev\n", name)
		for i, a := range rep.Histograms[name] {
			fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\n", HistogramBinLabel(name, i), a.Mean, a.HalfWidth, a.StdDev)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
