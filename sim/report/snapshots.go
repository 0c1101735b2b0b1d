// Package report writes simulation results: per-snapshot traces of a single
// run and the aggregate tables of a replicated experiment.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/qnetsim/qnetsim/sim"
)

// Snapshot output formats.
const (
	FormatCSV         = "csv"
	FormatCSVNoHeader = "csv-no-header"
	FormatDelay       = "delay"
	FormatText        = "text"
)

var (
	snapshotColumns = []string{"node", "clock", "pending", "departures", "queue_size", "busy", "delay", "utilization"}
	delayColumns    = []string{"delay", "in_system", "utilization"}
)

// IsValidFormat reports whether name is a known snapshot format.
func IsValidFormat(name string) bool {
	switch name {
	case FormatCSV, FormatCSVNoHeader, FormatDelay, FormatText:
		return true
	}
	return false
}

// WriteSnapshots writes snapshots to w in the given format.
func WriteSnapshots(w io.Writer, snapshots []sim.StatisticSnapshot, format string) error {
	switch format {
	case FormatCSV, FormatCSVNoHeader:
		return writeCSV(w, snapshots, format == FormatCSV)
	case FormatDelay:
		return writeDelay(w, snapshots)
	case FormatText:
		return writeText(w, snapshots)
	}
	return fmt.Errorf("unknown output format %q; valid: %s, %s, %s, %s", format, FormatCSV, FormatCSVNoHeader, FormatDelay, FormatText)
}

func writeCSV(w io.Writer, snapshots []sim.StatisticSnapshot, header bool) error {
	writer := csv.NewWriter(w)
	if header {
		if err := writer.Write(snapshotColumns); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
	}
	for i, s := range snapshots {
		row := []string{
			s.Node.String(),
			Decimal(s.Clock),
			strconv.Itoa(s.Pending),
			strconv.FormatInt(s.Departures, 10),
			strconv.Itoa(s.QueueSize),
			busyFlag(s.Busy),
			Decimal(s.Delay),
			Decimal(s.Utilization),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeDelay(w io.Writer, snapshots []sim.StatisticSnapshot) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(delayColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, s := range snapshots {
		row := []string{Decimal(s.Delay), strconv.Itoa(s.InSystem()), Decimal(s.Utilization)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeText(w io.Writer, snapshots []sim.StatisticSnapshot) error {
	for _, s := range snapshots {
		_, err := fmt.Fprintf(w, "Clock: %s, Node: %s, Pending Events: %d, Number of Departures: %d, Queue Size: %d, Server in use: %s, Delay: %s, Server Utilization: %s\n",
			Decimal(s.Clock), s.Node, s.Pending, s.Departures, s.QueueSize, busyFlag(s.Busy), Decimal(s.Delay), Decimal(s.Utilization))
		if err != nil {
			return err
		}
	}
	return nil
}

func busyFlag(busy bool) string {
	if busy {
		return "1"
	}
	return "0"
}

// Decimal formats v with at most nine fractional digits and no trailing zeros.
func Decimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 9, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
