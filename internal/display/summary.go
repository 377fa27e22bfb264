package display

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgHiGreen)
	failureColor = color.New(color.FgHiRed, color.Bold)
	detailColor  = color.New(color.FgWhite, color.Italic)
)

// Summary writes a one-line result for a finished encode.
func Summary(w io.Writer, output string, exitCode int, frames int64, elapsed time.Duration) {
	elapsed = elapsed.Round(time.Second / 10)
	if exitCode == 0 {
		successColor.Fprint(w, "✓ ")
		fmt.Fprintf(w, "%s ", output)
		detailColor.Fprintf(w, "(%d frames in %s)\n", frames, elapsed)
		return
	}
	failureColor.Fprintf(w, "✗ encode failed with exit code %d ", exitCode)
	detailColor.Fprintf(w, "after %s\n", elapsed)
}

// SetColor forces color output on or off, overriding terminal detection.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}
