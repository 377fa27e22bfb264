package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smazurov/ffjob/internal/media"
)

// SourceMap selects streams from one input for the output, rendered as
// "-map src[:type][:stream][?]". The order of source maps in a command is
// the order of streams in the output file.
type SourceMap struct {
	Source   int
	Type     media.StreamType
	Stream   *int
	Optional bool
}

// Specifier renders the map target, e.g. "0:v:1?".
func (m SourceMap) Specifier() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(m.Source))
	if l := m.Type.Letter(); l != "" {
		b.WriteString(":" + l)
	}
	if m.Stream != nil {
		b.WriteString(":" + strconv.Itoa(*m.Stream))
	}
	if m.Optional {
		b.WriteString("?")
	}
	return b.String()
}

// Args returns the "-map" flag pair.
func (m SourceMap) Args() []string {
	return []string{"-map", m.Specifier()}
}

func (m SourceMap) String() string {
	return m.Specifier()
}

func (m SourceMap) validate(field string, inputs int) error {
	if m.Source < 0 || m.Source >= inputs {
		return configErrorf(field, "source %d out of range, command has %d input(s)", m.Source, inputs)
	}
	if m.Type != "" && !m.Type.Selectable() {
		return configErrorf(field, "stream type %q cannot be mapped", m.Type)
	}
	if m.Stream != nil && *m.Stream < 0 {
		return configErrorf(field, "negative stream index %d", *m.Stream)
	}
	return nil
}

// ParseSourceMap parses the textual form produced by Specifier.
func ParseSourceMap(s string) (SourceMap, error) {
	var m SourceMap
	spec := strings.TrimSpace(s)
	if strings.HasSuffix(spec, "?") {
		m.Optional = true
		spec = strings.TrimSuffix(spec, "?")
	}

	parts := strings.Split(spec, ":")
	if len(parts) > 3 {
		return SourceMap{}, fmt.Errorf("source map %q: too many components", s)
	}

	src, err := strconv.Atoi(parts[0])
	if err != nil || src < 0 {
		return SourceMap{}, fmt.Errorf("source map %q: invalid source index %q", s, parts[0])
	}
	m.Source = src

	for i, part := range parts[1:] {
		if n, err := strconv.Atoi(part); err == nil {
			if i != len(parts)-2 || n < 0 {
				return SourceMap{}, fmt.Errorf("source map %q: invalid stream index %q", s, part)
			}
			m.Stream = &n
			continue
		}
		if i != 0 || len(part) != 1 {
			return SourceMap{}, fmt.Errorf("source map %q: invalid component %q", s, part)
		}
		t, err := media.ParseStreamType(part)
		if err != nil {
			return SourceMap{}, fmt.Errorf("source map %q: %w", s, err)
		}
		m.Type = t
	}
	return m, nil
}

// OutputMap attaches ordered per-stream options to the output, rendered as
// "-name[:type][:stream] value" for every option.
type OutputMap struct {
	Type    media.StreamType
	Stream  *int
	Options Options
}

// NewOutputMap returns an empty output map for the given selector.
func NewOutputMap(t media.StreamType, stream *int) *OutputMap {
	return &OutputMap{Type: t, Stream: stream}
}

// Set appends a scalar option.
func (m *OutputMap) Set(name, value string) *OutputMap {
	m.Options = append(m.Options, Option{Name: name, Value: value})
	return m
}

// SetParams appends an option whose value is a "k=v:k=v" parameter list.
func (m *OutputMap) SetParams(name string, params ...Param) *OutputMap {
	m.Options = append(m.Options, Option{Name: name, Params: params})
	return m
}

// Specifier joins the present type letter and stream index with ":".
// It is empty when neither is set.
func (m OutputMap) Specifier() string {
	var parts []string
	if l := m.Type.Letter(); l != "" {
		parts = append(parts, l)
	}
	if m.Stream != nil {
		parts = append(parts, strconv.Itoa(*m.Stream))
	}
	return strings.Join(parts, ":")
}

// Args renders every option as a flag and value pair, in insertion order.
func (m OutputMap) Args() []string {
	spec := m.Specifier()
	args := make([]string, 0, len(m.Options)*2)
	for _, opt := range m.Options {
		flag := "-" + opt.Name
		if spec != "" {
			flag += ":" + spec
		}
		args = append(args, flag, opt.Render())
	}
	return args
}

func (m OutputMap) validate(field string) error {
	if m.Type != "" && !m.Type.Selectable() {
		return configErrorf(field, "stream type %q cannot be selected", m.Type)
	}
	if m.Stream != nil && *m.Stream < 0 {
		return configErrorf(field, "negative stream index %d", *m.Stream)
	}
	for i, opt := range m.Options {
		if strings.TrimSpace(opt.Name) == "" {
			return configErrorf(fmt.Sprintf("%s.options[%d]", field, i), "empty option name")
		}
	}
	return nil
}

// IntPtr returns a pointer to n, for optional stream indices.
func IntPtr(n int) *int {
	return &n
}
