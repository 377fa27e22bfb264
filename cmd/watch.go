package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/smazurov/ffjob/internal/config"
	"github.com/smazurov/ffjob/internal/logging"
)

// CreateWatchCmd creates the watch command.
func CreateWatchCmd(settings *config.Options) *cobra.Command {
	var debounce time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch JOB",
		Short: "Re-render a job whenever its file changes",
		Long: `Prints the ffmpeg command for JOB, then watches the file and prints it again after every ` +
			`change. Invalid edits are reported and the watch continues. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		Run: func(c *cobra.Command, args []string) {
			logger := logging.GetLogger("watch")
			binary := ffmpegBinary(settings)

			watcher := newJobWatcher(args[0], binary, debounce, c.OutOrStdout(), c.ErrOrStderr(), asJSON)
			if err := watcher.Start(); err != nil {
				logger.Error("Failed to watch job", "job", args[0], "error", err)
				os.Exit(ExitFailure)
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case <-stop:
			case <-c.Context().Done():
			}

			if err := watcher.Stop(); err != nil {
				logger.Warn("Failed to stop watcher", "error", err)
			}
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Wait this long after the last change before re-rendering")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print each argument vector as a JSON array")
	return cmd
}

// newJobWatcher renders path on start and after each change, writing
// commands to out and failures to errOut.
func newJobWatcher(path, binary string, debounce time.Duration, out, errOut io.Writer, asJSON bool) *config.Watcher[[]string] {
	loader := func(p string) ([]string, error) {
		return renderJob(p, binary)
	}
	stamp := color.New(color.FgHiBlack)

	w := config.NewConfigWatcher(path, loader, logging.GetLogger("watch"),
		config.WithDebounce[[]string](debounce),
		config.WithInitialLoad[[]string](),
		config.WithErrorHandler[[]string](func(err error) {
			stamp.Fprintf(errOut, "[%s] ", time.Now().Format(time.TimeOnly))
			fmt.Fprintf(errOut, "%v\n", err)
		}),
	)
	w.OnReload(func(argv []string) {
		if !asJSON {
			stamp.Fprintf(out, "[%s] ", time.Now().Format(time.TimeOnly))
		}
		_ = writeArgs(out, argv, asJSON)
	})
	return w
}
