package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/signalmesh/signalmesh-go/pkg/log"
)

// fileStats aggregates counters over one event file.
type fileStats struct {
	Total       int
	ByCategory  map[string]int
	BySignal    map[string]int
	ByDirection map[string]int
	Accepted    int
	Rejected    int
	Errors      int
	First       time.Time
	Last        time.Time
}

// collectStats reads the whole file into aggregate counters.
func collectStats(path string) (*fileStats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer reader.Close()

	stats := &fileStats{
		ByCategory:  make(map[string]int),
		BySignal:    make(map[string]int),
		ByDirection: make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.Total++
		stats.ByCategory[event.Category.String()]++

		if stats.First.IsZero() || event.Timestamp.Before(stats.First) {
			stats.First = event.Timestamp
		}
		if event.Timestamp.After(stats.Last) {
			stats.Last = event.Timestamp
		}

		switch {
		case event.Signal != nil:
			stats.BySignal[event.Signal.Name]++
			stats.ByDirection[event.Direction.String()]++
		case event.Admission != nil:
			if event.Admission.Accepted {
				stats.Accepted++
			} else {
				stats.Rejected++
			}
		case event.Error != nil:
			stats.Errors++
		}
	}
}

// RunStats prints aggregate statistics for an event file.
func RunStats(path string, output io.Writer) error {
	stats, err := collectStats(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Events: %d\n", stats.Total)
	if stats.Total == 0 {
		return nil
	}

	fmt.Fprintf(output, "Span: %s to %s (%s)\n",
		stats.First.UTC().Format(time.RFC3339),
		stats.Last.UTC().Format(time.RFC3339),
		stats.Last.Sub(stats.First).Round(time.Second))

	fmt.Fprintln(output, "\nBy category:")
	printCounts(output, stats.ByCategory)

	if len(stats.BySignal) > 0 {
		fmt.Fprintln(output, "\nBy signal:")
		printCounts(output, stats.BySignal)
		fmt.Fprintln(output, "\nBy direction:")
		printCounts(output, stats.ByDirection)
	}

	if stats.Accepted+stats.Rejected > 0 {
		fmt.Fprintf(output, "\nAdmission: %d accepted, %d rejected\n",
			stats.Accepted, stats.Rejected)
	}
	if stats.Errors > 0 {
		fmt.Fprintf(output, "Errors: %d\n", stats.Errors)
	}
	return nil
}

// printCounts prints a count map sorted by key.
func printCounts(output io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(output, "  %-16s %d\n", k, counts[k])
	}
}
