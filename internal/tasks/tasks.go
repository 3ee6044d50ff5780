// package tasks implements the export and playlist operations behind the stx commands.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
