// Package ui implements the interactive export screen using bubbletea's Elm architecture.
//
// The TUI moves through three views:
//  1. [ExportView] : spinner and per-page log while the export runs
//  2. [SummaryView] : per-sport summary table with totals and written files
//  3. [ActivityView] : filterable list of every exported activity
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.ExportEngine], providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
