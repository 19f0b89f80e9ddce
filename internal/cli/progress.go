package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// ImportProgress draws a progress bar for a record-by-record import.
type ImportProgress struct {
	bar    *progressbar.ProgressBar
	entity string
}

// NewImportProgress creates a bar for total records written to writer.
func NewImportProgress(writer io.Writer, total int) *ImportProgress {
	p := &ImportProgress{}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Importing...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Update moves the bar to done and names the entity being imported. It
// has the shape of an importer progress callback.
func (p *ImportProgress) Update(entity string, done, _ int) {
	if entity != p.entity {
		p.entity = entity
		p.bar.Describe(fmt.Sprintf("[cyan][bold]Importing %ss...[reset]", entity))
	}
	if err := p.bar.Set(done); err != nil {
		slog.Debug("failed to update progress bar", "error", err)
	}
}

// Done returns the number of records reported so far.
func (p *ImportProgress) Done() int {
	return int(p.bar.State().CurrentNum)
}

// Finish completes the bar.
func (p *ImportProgress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Debug("failed to finish progress bar", "error", err)
	}
}
