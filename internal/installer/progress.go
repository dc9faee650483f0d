package installer

import (
	"fmt"
	"io"
	"strings"
)

const barWidth = 40

// progressBar renders a single-line download progress bar, rewriting the
// line in place with carriage returns.
type progressBar struct {
	out  io.Writer
	done bool
}

// Update redraws the bar. total may be zero when the server sends no
// Content-Length; then only the byte count is shown.
func (p *progressBar) Update(percent int, downloaded, total int64) {
	mb := float64(downloaded) / (1024 * 1024)
	if total <= 0 {
		fmt.Fprintf(p.out, "\r   Progress: %.1f MB", mb)
		return
	}
	filled := barWidth * percent / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("-", barWidth-filled)
	fmt.Fprintf(p.out, "\r   Progress: |%s| %d%% %.1f/%.1f MB",
		bar, percent, mb, float64(total)/(1024*1024))
}

// Finish terminates the progress line
func (p *progressBar) Finish() {
	if p.done {
		return
	}
	p.done = true
	fmt.Fprintln(p.out)
}
