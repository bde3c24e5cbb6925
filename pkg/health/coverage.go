package health

import (
	"sort"

	"github.com/signalmesh/signalmesh-go/pkg/peers"
)

// CoverageReport compares the active-peer listing against the expected
// roster.
type CoverageReport struct {
	// Expected is the roster size.
	Expected int

	// Present are roster addresses currently active.
	Present []string

	// Missing are roster addresses not currently active.
	Missing []string

	// Unexpected are active peers absent from the roster.
	Unexpected []string
}

// Covered reports whether every roster member is active.
func (r CoverageReport) Covered() bool {
	return len(r.Missing) == 0
}

// Coverage computes a report from the peer table's active listing and
// the expected-peer roster.
func Coverage(table *peers.Table, roster []string) CoverageReport {
	expected := make(map[string]struct{}, len(roster))
	for _, addr := range roster {
		expected[addr] = struct{}{}
	}

	report := CoverageReport{Expected: len(expected)}

	active := make(map[string]struct{})
	for _, p := range table.ActivePeers() {
		active[p.Addr] = struct{}{}
		if _, ok := expected[p.Addr]; ok {
			report.Present = append(report.Present, p.Addr)
		} else {
			report.Unexpected = append(report.Unexpected, p.Addr)
		}
	}
	for addr := range expected {
		if _, ok := active[addr]; !ok {
			report.Missing = append(report.Missing, addr)
		}
	}

	sort.Strings(report.Present)
	sort.Strings(report.Missing)
	sort.Strings(report.Unexpected)
	return report
}
