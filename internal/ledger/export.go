package ledger

import (
	"sort"
	"time"
)

// PairKey joins a source and destination cluster name into a summary key.
func PairKey(source, destination string) string {
	return source + " → " + destination
}

// Summary aggregates migrations by cluster pair.
type Summary struct {
	ByClusterPair map[string]int `json:"by_cluster_pair"`
}

// PairCount is one row of the summary.
type PairCount struct {
	Pair  string `json:"pair"`
	Count int    `json:"count"`
}

// Pairs returns the summary rows ordered by count descending, then pair name.
func (s Summary) Pairs() []PairCount {
	out := make([]PairCount, 0, len(s.ByClusterPair))
	for k, v := range s.ByClusterPair {
		out = append(out, PairCount{Pair: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Pair < out[j].Pair
	})
	return out
}

// Export is the downloadable document describing the ledger.
type Export struct {
	ExportDate      time.Time   `json:"export_date"`
	TotalMigrations int         `json:"total_migrations"`
	Migrations      []Migration `json:"migrations"`
	Summary         Summary     `json:"summary"`
}

// Export builds the export document for the ledger.
func (l Ledger) Export(now time.Time) Export {
	ms := l.Entries()
	if ms == nil {
		ms = []Migration{}
	}

	summary := Summary{ByClusterPair: make(map[string]int)}
	for i := range ms {
		summary.ByClusterPair[PairKey(ms[i].SourceClusterName, ms[i].DestinationClusterName)]++
	}

	return Export{
		ExportDate:      now,
		TotalMigrations: len(ms),
		Migrations:      ms,
		Summary:         summary,
	}
}
