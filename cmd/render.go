package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/ffjob/internal/config"
	"github.com/smazurov/ffjob/internal/ffmpeg"
	"github.com/smazurov/ffjob/internal/job"
	"github.com/smazurov/ffjob/internal/logging"
	"github.com/smazurov/ffjob/internal/toolchain"
)

// CreateRenderCmd creates the render command.
func CreateRenderCmd(settings *config.Options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "render JOB",
		Short: "Print the ffmpeg command a job would run",
		Long: `Loads and validates JOB and prints the ffmpeg argument vector without running it. ` +
			`The default output is shell-quoted for reading; --json prints the exact argument list.`,
		Args: cobra.ExactArgs(1),
		Run: func(c *cobra.Command, args []string) {
			logger := logging.GetLogger("job")

			argv, err := renderJob(args[0], ffmpegBinary(settings))
			if err != nil {
				logger.Error("Failed to render job", "job", args[0], "error", err)
				os.Exit(ExitCode(err))
			}
			if err := writeArgs(c.OutOrStdout(), argv, asJSON); err != nil {
				logger.Error("Failed to write command", "error", err)
				os.Exit(ExitFailure)
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the argument vector as a JSON array")
	return cmd
}

// ffmpegBinary resolves ffmpeg for display. Rendering does not need a
// working binary, so an unresolved one falls back to the bare name.
func ffmpegBinary(settings *config.Options) string {
	path, err := toolchain.Resolve(toolchain.FFmpeg, settings.FfmpegPath)
	if err != nil {
		logging.GetLogger("job").Debug("ffmpeg not resolved, rendering with bare name", "error", err)
		return toolchain.ExecutableName(toolchain.FFmpeg)
	}
	return path
}

func renderJob(path, binary string) ([]string, error) {
	j, err := job.Load(path)
	if err != nil {
		return nil, err
	}
	command, err := j.Command(binary)
	if err != nil {
		return nil, err
	}
	return command.Args()
}

func writeArgs(w io.Writer, argv []string, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(argv)
	}
	_, err := fmt.Fprintln(w, ffmpeg.FormatArgs(argv))
	return err
}
