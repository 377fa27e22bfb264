// Package job loads encode job documents.
//
// A job is a JSON document naming the inputs, the output, how streams are
// selected from the inputs (source maps) and which options apply to the
// selected output streams (output maps). Option order inside each output
// map is preserved, since ffmpeg applies options in command-line order.
package job

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/smazurov/ffjob/internal/ffmpeg"
	"github.com/smazurov/ffjob/internal/logging"
	"github.com/smazurov/ffjob/internal/media"
)

// ExitSchemaInvalid is the process exit status for a job document that
// fails to decode or validate.
const ExitSchemaInvalid = 100

// Job is a decoded and validated job document.
type Job struct {
	InputFiles []string `json:"input_files" validate:"min=1,dive,required"`
	// Sources is the older spelling of InputFiles and is folded into it
	// during decoding.
	Sources     []string    `json:"sources,omitempty" validate:"-"`
	OutputFile  string      `json:"output_file" validate:"required"`
	Overwrite   bool        `json:"overwrite,omitempty"`
	ProgressBar bool        `json:"progress_bar,omitempty"`
	SourceMaps  []SourceMap `json:"source_maps" validate:"dive"`
	OutputMaps  []OutputMap `json:"output_maps" validate:"dive"`
}

// SourceMap selects streams from one input file.
type SourceMap struct {
	Source    int    `json:"source" validate:"min=0"`
	Specifier string `json:"specifier,omitempty" validate:"omitempty,stream_type"`
	Stream    *int   `json:"stream,omitempty" validate:"omitempty,min=0"`
	Optional  bool   `json:"optional,omitempty"`
}

// OutputMap applies options to the output streams it selects.
type OutputMap struct {
	Specifier string         `json:"specifier,omitempty" validate:"omitempty,stream_type"`
	Stream    *int           `json:"stream,omitempty" validate:"omitempty,min=0"`
	Options   ffmpeg.Options `json:"options,omitempty"`
}

// Load reads and validates the job document at path.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	j, err := Decode(bytes.NewReader(data))
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			schemaErr.Path = path
		}
		return nil, err
	}

	logging.GetLogger("job").Debug("Job loaded",
		"path", path,
		"inputs", len(j.InputFiles),
		"source_maps", len(j.SourceMaps),
		"output_maps", len(j.OutputMaps))
	return j, nil
}

// Decode reads one job document from r. Unknown fields, trailing data and
// schema violations are reported as *SchemaError.
func Decode(r io.Reader) (*Job, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var j Job
	if err := dec.Decode(&j); err != nil {
		return nil, &SchemaError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &SchemaError{Problems: []string{"unexpected data after the job document"}}
	}

	if len(j.Sources) > 0 {
		if len(j.InputFiles) > 0 {
			return nil, &SchemaError{Problems: []string{"input_files and sources are mutually exclusive"}}
		}
		j.InputFiles, j.Sources = j.Sources, nil
	}

	if err := defaultValidator.Struct(&j); err != nil {
		return nil, newSchemaError(err)
	}
	return &j, nil
}

// Command converts the job into an ffmpeg command for binary. The result
// has already passed Command.Validate.
func (j *Job) Command(binary string) (*ffmpeg.Command, error) {
	cmd := &ffmpeg.Command{
		Binary:     binary,
		Inputs:     append([]string(nil), j.InputFiles...),
		Output:     j.OutputFile,
		Overwrite:  j.Overwrite,
		SourceMaps: make([]ffmpeg.SourceMap, 0, len(j.SourceMaps)),
		OutputMaps: make([]ffmpeg.OutputMap, 0, len(j.OutputMaps)),
	}

	for i, m := range j.SourceMaps {
		t, err := media.ParseStreamType(m.Specifier)
		if err != nil {
			return nil, fmt.Errorf("source_maps[%d]: %w", i, err)
		}
		cmd.SourceMaps = append(cmd.SourceMaps, ffmpeg.SourceMap{
			Source:   m.Source,
			Type:     t,
			Stream:   copyInt(m.Stream),
			Optional: m.Optional,
		})
	}
	for i, m := range j.OutputMaps {
		t, err := media.ParseStreamType(m.Specifier)
		if err != nil {
			return nil, fmt.Errorf("output_maps[%d]: %w", i, err)
		}
		cmd.OutputMaps = append(cmd.OutputMaps, ffmpeg.OutputMap{
			Type:    t,
			Stream:  copyInt(m.Stream),
			Options: append(ffmpeg.Options(nil), m.Options...),
		})
	}

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	return ffmpeg.IntPtr(*p)
}
