package dataset

import "strings"

// Candidate header names, matched case-insensitively in this priority order
// against headers in file order.
var (
	idCandidates     = []string{"country", "countries", "location", "nation", "state", "region"}
	regionCandidates = []string{"region", "regions", "area", "zone", "district", "city"}
)

// PreferredMetrics are the solar measurements offered first when present.
var PreferredMetrics = []string{"GHI", "DNI", "DHI", "Tamb", "TModA", "TModB", "WS", "WSgust", "RH"}

// detectColumn returns the first header whose lowercased name is a candidate,
// skipping exclude. Headers are scanned in file order.
func detectColumn(columns []Column, candidates []string, exclude string) string {
	want := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		want[c] = true
	}
	for _, col := range columns {
		if col.Name == exclude {
			continue
		}
		if want[strings.ToLower(col.Name)] {
			return col.Name
		}
	}
	return ""
}

// detectMetrics lists preferred metrics that exist as numeric columns, falling
// back to every numeric column when none of them do. The identifier and region
// columns are never metrics.
func detectMetrics(columns []Column, layout Layout) []string {
	numeric := make(map[string]string, len(columns))
	for _, c := range columns {
		if c.Kind == KindNumeric && c.Name != layout.ID && c.Name != layout.Region {
			numeric[strings.ToLower(c.Name)] = c.Name
		}
	}

	var metrics []string
	for _, m := range PreferredMetrics {
		if name, ok := numeric[strings.ToLower(m)]; ok {
			metrics = append(metrics, name)
		}
	}
	if len(metrics) > 0 {
		return metrics
	}

	for _, c := range columns {
		if _, ok := numeric[strings.ToLower(c.Name)]; ok {
			metrics = append(metrics, c.Name)
		}
	}
	return metrics
}
