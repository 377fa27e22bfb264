package process

import (
	"fmt"
	"strings"
)

// EncodeError reports a non-zero encoder exit in non-verbose mode.
type EncodeError struct {
	ExitCode int
	// Tail holds the last lines the encoder printed.
	Tail []string
	// Canceled is set when the exit followed a context cancellation.
	Canceled bool
}

func (e *EncodeError) Error() string {
	msg := fmt.Sprintf("encoder exited with code %d", e.ExitCode)
	if e.Canceled {
		msg += " after cancellation"
	}
	if last := e.LastLine(); last != "" {
		msg += ": " + last
	}
	return msg
}

// LastLine returns the last non-progress line of output, if any.
func (e *EncodeError) LastLine() string {
	for i := len(e.Tail) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(e.Tail[i]); line != "" {
			return line
		}
	}
	return ""
}
