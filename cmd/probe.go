package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/ffjob/internal/config"
	"github.com/smazurov/ffjob/internal/logging"
	"github.com/smazurov/ffjob/internal/media"
	"github.com/smazurov/ffjob/internal/probe"
	"github.com/smazurov/ffjob/internal/toolchain"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd(settings *config.Options) *cobra.Command {
	var streamType string
	var countFrames bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe FILE",
		Short: "List the streams of a media file",
		Long: `Runs ffprobe on FILE and prints its stream catalog. With --type the streams are ` +
			`filtered to one type and renumbered from zero, matching ffmpeg's per-type stream specifiers.`,
		Args: cobra.ExactArgs(1),
		Run: func(c *cobra.Command, args []string) {
			logger := logging.GetLogger("probe")

			filter, err := parseFilter(streamType)
			if err != nil {
				logger.Error("Invalid --type", "error", err)
				os.Exit(ExitFailure)
			}

			binary, err := toolchain.Resolve(toolchain.FFprobe, settings.FfprobePath)
			if err != nil {
				logger.Error("Failed to resolve ffprobe", "error", err)
				os.Exit(ExitCode(err))
			}

			catalog, err := probe.NewProber(binary, logger).Catalog(c.Context(), args[0], countFrames || settings.CountFrames)
			if err != nil {
				logger.Error("Probe failed", "file", args[0], "error", err)
				os.Exit(ExitCode(err))
			}

			streams := catalog.Streams()
			if filter != "" {
				streams = catalog.Filter(filter)
			}

			if asJSON {
				err = writeCatalogJSON(c.OutOrStdout(), catalog.Path(), streams)
			} else {
				err = writeCatalogTable(c.OutOrStdout(), streams)
			}
			if err != nil {
				logger.Error("Failed to write catalog", "error", err)
				os.Exit(ExitFailure)
			}
		},
	}

	cmd.Flags().StringVarP(&streamType, "type", "t", "", "Only list streams of this type (video, audio, subtitle, data, attachment, all)")
	cmd.Flags().BoolVar(&countFrames, "count-frames", false, "Decode streams to count frames exactly (slow)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}

// parseFilter returns the empty type for "no filter", media.All for "all"
// and the parsed type otherwise.
func parseFilter(s string) (media.StreamType, error) {
	if strings.EqualFold(strings.TrimSpace(s), string(media.All)) {
		return media.All, nil
	}
	return media.ParseStreamType(s)
}

func writeCatalogJSON(w io.Writer, path string, streams []probe.StreamDescriptor) error {
	if streams == nil {
		streams = []probe.StreamDescriptor{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Path    string                   `json:"path"`
		Streams []probe.StreamDescriptor `json:"streams"`
	}{path, streams})
}

func writeCatalogTable(w io.Writer, streams []probe.StreamDescriptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tTYPE\tCODEC\tLANG\tFRAMES\tBITRATE\tFLAGS\tTITLE")
	for _, s := range streams {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Index, s.Type, s.Codec, dash(s.Language),
			optional(s.FrameCount), optional(s.Bitrate), flags(s), s.Title)
	}
	return tw.Flush()
}

func optional(n *int64) string {
	if n == nil {
		return "-"
	}
	return strconv.FormatInt(*n, 10)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func flags(s probe.StreamDescriptor) string {
	var f []string
	if s.Default {
		f = append(f, "default")
	}
	if s.Forced {
		f = append(f, "forced")
	}
	return dash(strings.Join(f, ","))
}
