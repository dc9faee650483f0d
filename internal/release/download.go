package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// ProgressFunc receives download progress. total is zero when the server
// does not report a length; percent is only meaningful when it does.
type ProgressFunc func(percent int, downloaded, total int64)

// Download streams url into dest, reporting progress as bytes arrive. The
// asset download uses a bare client without the API timeout: a .deb can
// legitimately take minutes on a slow uplink.
func (c *Client) Download(ctx context.Context, url, dest string, progress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	reader := &progressReader{
		reader:   resp.Body,
		total:    resp.ContentLength,
		progress: progress,
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return fmt.Errorf("download failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	return nil
}

// progressReader wraps a reader to report download progress
type progressReader struct {
	reader   io.Reader
	total    int64
	read     int64
	progress ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)
	if r.progress != nil && n > 0 {
		percent := 0
		if r.total > 0 {
			percent = int(min(100, r.read*100/r.total))
		}
		r.progress(percent, r.read, r.total)
	}
	return n, err
}
