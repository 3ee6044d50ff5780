package strava

import (
	"cmp"
	"slices"
	"strconv"
)

// SummaryHeaders are the column names of the summary table, in order.
var SummaryHeaders = []string{"sport_type", "distance_km", "activity_count"}

// SummaryRow totals the activities of one sport type.
type SummaryRow struct {
	SportType  string  `json:"sport_type"`
	DistanceKM float64 `json:"distance_km"`
	Count      int     `json:"activity_count"`
}

// Fields returns the row rendered as strings in [SummaryHeaders] order.
func (s SummaryRow) Fields() []string {
	return []string{s.SportType, formatFloat(s.DistanceKM), strconv.Itoa(s.Count)}
}

// Summarize groups rows by sport type, one [SummaryRow] per distinct value, sorted by sport type.
func Summarize(rows []ActivityRow) []SummaryRow {
	index := make(map[string]int)
	var summary []SummaryRow
	for _, r := range rows {
		i, ok := index[r.SportType]
		if !ok {
			i = len(summary)
			index[r.SportType] = i
			summary = append(summary, SummaryRow{SportType: r.SportType})
		}
		summary[i].DistanceKM += r.DistanceKM
		summary[i].Count++
	}

	for i := range summary {
		summary[i].DistanceKM = round(summary[i].DistanceKM, 2)
	}

	slices.SortStableFunc(summary, func(a, b SummaryRow) int {
		return cmp.Compare(a.SportType, b.SportType)
	})
	return summary
}

// Totals returns the overall activity count and distance of a summary.
func Totals(summary []SummaryRow) (count int, distanceKM float64) {
	for _, s := range summary {
		count += s.Count
		distanceKM += s.DistanceKM
	}
	return count, round(distanceKM, 2)
}
