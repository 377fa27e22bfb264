package job

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/smazurov/ffjob/internal/media"
)

var defaultValidator = NewValidator()

// NewValidator returns a validator with the job rules registered:
// the stream_type tag and the source range check on Job.
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("stream_type", func(fl validator.FieldLevel) bool {
		t, err := media.ParseStreamType(fl.Field().String())
		return err == nil && t.Selectable()
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		j := sl.Current().Interface().(Job)
		for i, m := range j.SourceMaps {
			if m.Source >= len(j.InputFiles) {
				sl.ReportError(m.Source, fmt.Sprintf("source_maps[%d].source", i), "Source",
					"source_range", strconv.Itoa(len(j.InputFiles)))
			}
		}
	}, Job{})

	return v
}

// SchemaError reports a job document that could not be decoded or did not
// validate.
type SchemaError struct {
	Path     string
	Problems []string
	Err      error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("invalid job")
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	switch {
	case len(e.Problems) > 0:
		b.WriteString(": " + strings.Join(e.Problems, "; "))
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func newSchemaError(err error) *SchemaError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &SchemaError{Err: err}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return &SchemaError{Problems: problems, Err: err}
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entr%s", field, fe.Param(), plural(fe.Param()))
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "stream_type":
		return fmt.Sprintf("%s: unknown stream type %q", field, fe.Value())
	case "source_range":
		return fmt.Sprintf("%s: input %v does not exist, job has %s input file(s)", field, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func plural(n string) string {
	if n == "1" {
		return "y"
	}
	return "ies"
}
