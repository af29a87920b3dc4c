// Package progress renders per-collection fetch progress on a terminal.
package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/renderinc/uservoice-export/internal/uservoice"
)

// Bar adapts a progressbar to uservoice.Progress
type Bar struct {
	out         io.Writer
	description string
	bar         *progressbar.ProgressBar
}

// Factory returns a uservoice.WithProgress factory writing to out. A nil out
// disables progress output.
func Factory(out io.Writer) func(resource string) uservoice.Progress {
	return func(resource string) uservoice.Progress {
		if out == nil {
			return nil
		}
		return &Bar{out: out, description: resource}
	}
}

// Start sizes the bar; a zero total renders a spinner
func (b *Bar) Start(total int) {
	size := total
	if size <= 0 {
		size = -1
	}
	b.bar = progressbar.NewOptions(size,
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetDescription(b.description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

// Update moves the bar to current
func (b *Bar) Update(current int) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Set(current)
}

// Finish completes the bar
func (b *Bar) Finish() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}
