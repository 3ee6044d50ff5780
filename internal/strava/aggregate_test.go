package strava

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	t.Run("groups by sport type", func(t *testing.T) {
		rows := []ActivityRow{
			{SportType: "Run", DistanceKM: 5.0},
			{SportType: "Run", DistanceKM: 3.0},
			{SportType: "Ride", DistanceKM: 10.0},
		}

		summary := Summarize(rows)
		assert.ElementsMatch(t, []SummaryRow{
			{SportType: "Run", DistanceKM: 8.0, Count: 2},
			{SportType: "Ride", DistanceKM: 10.0, Count: 1},
		}, summary)
	})

	t.Run("one row per category and counts add up", func(t *testing.T) {
		rows := []ActivityRow{
			{SportType: "Walk", DistanceKM: 1.11},
			{SportType: "Swim", DistanceKM: 0.75},
			{SportType: "Walk", DistanceKM: 2.22},
			{SportType: "", DistanceKM: 4},
			{SportType: "Walk", DistanceKM: 0.1},
		}

		summary := Summarize(rows)
		seen := map[string]bool{}
		for _, s := range summary {
			assert.False(t, seen[s.SportType], "duplicate category %q", s.SportType)
			seen[s.SportType] = true
		}
		assert.Len(t, summary, 3)

		count, distance := Totals(summary)
		assert.Equal(t, len(rows), count)
		assert.InDelta(t, 8.18, distance, 1e-9)
	})

	t.Run("sums are rounded", func(t *testing.T) {
		summary := Summarize([]ActivityRow{{SportType: "Run", DistanceKM: 0.1}, {SportType: "Run", DistanceKM: 0.2}})
		assert.Equal(t, 0.3, summary[0].DistanceKM)
	})

	t.Run("empty table", func(t *testing.T) {
		assert.Empty(t, Summarize(nil))
	})

	t.Run("fields", func(t *testing.T) {
		assert.Equal(t, []string{"Run", "8", "2"}, SummaryRow{SportType: "Run", DistanceKM: 8, Count: 2}.Fields())
	})
}
