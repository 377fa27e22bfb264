// Package probe runs ffprobe and normalizes its stream report into a Catalog.
package probe

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/smazurov/ffjob/internal/logging"
)

// Prober builds catalogs using an ffprobe binary.
type Prober struct {
	binary string
	logger logging.Logger
}

// NewProber returns a prober for the given ffprobe executable.
// A nil logger falls back to the "probe" module logger.
func NewProber(binary string, logger logging.Logger) *Prober {
	if logger == nil {
		logger = logging.GetLogger("probe")
	}
	return &Prober{binary: binary, logger: logger}
}

// Args returns the ffprobe argument vector used for mediaPath, binary first.
func (p *Prober) Args(mediaPath string, countFrames bool) []string {
	args := []string{p.binary, "-v", "quiet", "-show_streams", "-print_format", "json"}
	if countFrames {
		args = append(args, "-count_frames")
	}
	return append(args, mediaPath)
}

// Catalog probes mediaPath and returns its stream catalog. Counting frames
// decodes the whole file and can take as long as a transcode.
func (p *Prober) Catalog(ctx context.Context, mediaPath string, countFrames bool) (*Catalog, error) {
	args := p.Args(mediaPath, countFrames)
	p.logger.Debug("Probing media", "path", mediaPath, "count_frames", countFrames)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		perr := &ProbeError{
			Path:   mediaPath,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			perr.ExitCode = exitErr.ExitCode()
		}
		p.logger.Warn("ffprobe failed", "path", mediaPath, "error", perr)
		return nil, perr
	}

	catalog, err := ParseCatalog(mediaPath, stdout.Bytes(), countFrames)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Probe complete", "path", mediaPath, "streams", catalog.Len())
	return catalog, nil
}
