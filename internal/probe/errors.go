package probe

import (
	"fmt"
	"strings"
)

// ProbeError reports that ffprobe could not produce a usable stream list
// for a media file. No partial catalog is ever returned alongside it.
type ProbeError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProbeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "probe %s", e.Path)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, ": ffprobe exited with code %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, " (%s)", e.Stderr)
	}
	return b.String()
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
