package tasks

import (
	"fmt"

	"github.com/desertthunder/stx/internal/services"
	"github.com/desertthunder/stx/internal/strava"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchActivities Phase = iota
	NormalizeActivities
	SummarizeActivities
	WriteFiles
	RecordRun
	ExportComplete
	FetchUser
	SearchTracks
	CreatePlaylist
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case FetchActivities:
		return "fetch_activities"
	case NormalizeActivities:
		return "normalize_activities"
	case SummarizeActivities:
		return "summarize_activities"
	case WriteFiles:
		return "write_files"
	case RecordRun:
		return "record_run"
	case ExportComplete:
		return "export_complete"
	case FetchUser:
		return "fetch_user"
	case SearchTracks:
		return "search_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

func fetchingActivitiesUpdate(since string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchActivities,
		Message: fmt.Sprintf("Fetching activities after %s...", since),
	}
}

func fetchedPageUpdate(ev strava.PageEvent) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchActivities,
		Step:    ev.Page,
		Message: fmt.Sprintf("Fetched page %d with %d activities (%d total)", ev.Page, ev.Count, ev.Total),
		Data:    ev,
	}
}

func normalizeUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   NormalizeActivities,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Normalized %d activities", total),
	}
}

func summarizeUpdate(summary []strava.SummaryRow) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SummarizeActivities,
		Step:    len(summary),
		Total:   len(summary),
		Message: fmt.Sprintf("Summarized %d sport types", len(summary)),
		Data:    summary,
	}
}

func noActivitiesUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportComplete,
		Message: "No activities found for the specified time period.",
	}
}

func writeFilesUpdate(activities, summary string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFiles,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Wrote %s and %s", activities, summary),
	}
}

func recordRunUpdate(sequence int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordRun,
		Step:    sequence,
		Message: fmt.Sprintf("Recorded export #%d", sequence),
	}
}

func exportCompleteUpdate(result *ExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportComplete,
		Step:    len(result.Activities),
		Total:   len(result.Activities),
		Message: fmt.Sprintf("Exported %d activities", len(result.Activities)),
		Data:    result,
	}
}

func fetchUserUpdate(user *services.SpotifyUser) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchUser,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Logged in as: %s", user.DisplayName),
		Data:    user,
	}
}

func searchTrackUpdate(step, total int, m SongMatch) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] Not found: %s", step, total, m.Query)
	if m.Track != nil {
		msg = fmt.Sprintf("[%d/%d] Found: %s by %s", step, total, m.Track.Name, m.Track.Artist())
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    m,
	}
}

func createPlaylistUpdate(pl *services.SpotifyPlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(batch, batches, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    batch,
		Total:   batches,
		Message: fmt.Sprintf("Added batch %d: %d tracks", batch, size),
	}
}
