// Package ffmpeg models an ffmpeg invocation and renders it to an argument vector.
package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/smazurov/ffjob/internal/media"
	"github.com/smazurov/ffjob/internal/probe"
)

// ProgressTarget is where ffmpeg writes its key=value progress report.
const ProgressTarget = "pipe:1"

// Command describes a single-output ffmpeg invocation. It holds no process
// state, and rendering it is deterministic.
type Command struct {
	Binary     string
	Inputs     []string
	Output     string
	SourceMaps []SourceMap
	OutputMaps []OutputMap
	Overwrite  bool
}

// Validate reports the first reason the command cannot be rendered.
func (c *Command) Validate() error {
	if c.Binary == "" {
		return configErrorf("binary", "ffmpeg binary not set")
	}
	if strings.TrimSpace(c.Output) == "" {
		return configErrorf("output", "no output file")
	}
	for i, in := range c.Inputs {
		if in == "" {
			return configErrorf(fmt.Sprintf("inputs[%d]", i), "empty input path")
		}
	}
	for i, m := range c.SourceMaps {
		if err := m.validate(fmt.Sprintf("source_maps[%d]", i), len(c.Inputs)); err != nil {
			return err
		}
	}
	for i, m := range c.OutputMaps {
		if err := m.validate(fmt.Sprintf("output_maps[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// Args renders the full argument vector, binary first:
//
//	ffmpeg [-y] -progress pipe:1 -i in0 -i in1 ... -map ... -opt:spec val ... /abs/output
func (c *Command) Args() ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	output, err := filepath.Abs(c.Output)
	if err != nil {
		return nil, configErrorf("output", "resolve %q: %v", c.Output, err)
	}

	args := []string{c.Binary}
	if c.Overwrite {
		args = append(args, "-y")
	}
	args = append(args, "-progress", ProgressTarget)
	for _, in := range c.Inputs {
		args = append(args, "-i", in)
	}
	for _, m := range c.SourceMaps {
		args = append(args, m.Args()...)
	}
	for _, m := range c.OutputMaps {
		args = append(args, m.Args()...)
	}
	return append(args, output), nil
}

// String renders the command for display. Arguments are never passed
// through a shell; this form is only for logs and the render command.
func (c *Command) String() string {
	args, err := c.Args()
	if err != nil {
		return fmt.Sprintf("<invalid command: %v>", err)
	}
	return FormatArgs(args)
}

// FormatArgs joins an argument vector, single-quoting tokens a POSIX shell
// would split or expand.
func FormatArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// CatalogSource builds stream catalogs; *probe.Prober satisfies it.
type CatalogSource interface {
	Catalog(ctx context.Context, mediaPath string, countFrames bool) (*probe.Catalog, error)
}

// PrimaryVideoStream finds the video stream that becomes the first video
// of the output, for use as the progress total. Source maps are scanned in
// order and the first one that resolves to an existing video stream wins:
//
//   - no type, with a stream index: the stream at that raw position, if it is video
//   - no type, no stream index: the first video stream of that input
//   - video type: the n-th video stream of that input (n defaults to 0)
//
// Maps of other types, and positions the input does not have, are skipped.
// It returns nil without error when nothing qualifies.
func (c *Command) PrimaryVideoStream(ctx context.Context, src CatalogSource, countFrames bool) (*probe.StreamDescriptor, error) {
	catalogs := make(map[int]*probe.Catalog)
	catalog := func(i int) (*probe.Catalog, error) {
		if cat, ok := catalogs[i]; ok {
			return cat, nil
		}
		cat, err := src.Catalog(ctx, c.Inputs[i], countFrames)
		if err != nil {
			return nil, err
		}
		catalogs[i] = cat
		return cat, nil
	}

	for _, m := range c.SourceMaps {
		if m.Source < 0 || m.Source >= len(c.Inputs) {
			continue
		}
		if m.Type != "" && m.Type != media.Video {
			continue
		}

		cat, err := catalog(m.Source)
		if err != nil {
			return nil, err
		}

		if d := pickVideo(cat, m); d != nil {
			return d, nil
		}
	}
	return nil, nil
}

func pickVideo(cat *probe.Catalog, m SourceMap) *probe.StreamDescriptor {
	if m.Type == media.Video {
		n := 0
		if m.Stream != nil {
			n = *m.Stream
		}
		videos := cat.Filter(media.Video)
		if n < 0 || n >= len(videos) {
			return nil
		}
		return &videos[n]
	}

	if m.Stream == nil {
		videos := cat.Filter(media.Video)
		if len(videos) == 0 {
			return nil
		}
		return &videos[0]
	}

	streams := cat.Streams()
	n := *m.Stream
	if n < 0 || n >= len(streams) || streams[n].Type != media.Video {
		return nil
	}
	return &streams[n]
}
