package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// TUI runs the export with the configured settings inside the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	return r.runExport(ctx, r.config.Export, true)
}
