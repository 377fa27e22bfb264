package cmd

import (
	"errors"

	"github.com/smazurov/ffjob/internal/job"
	"github.com/smazurov/ffjob/internal/process"
	"github.com/smazurov/ffjob/internal/toolchain"
)

// Process exit statuses.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitBinaryNotFound = 2
	ExitInterrupted    = 130
)

// ExitCode maps an error to the process exit status. An encoder failure
// exits with the encoder's own status. Interrupted encodes are mapped to
// ExitInterrupted by the caller before this is consulted.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var schemaErr *job.SchemaError
	if errors.As(err, &schemaErr) {
		return job.ExitSchemaInvalid
	}
	var encodeErr *process.EncodeError
	if errors.As(err, &encodeErr) && encodeErr.ExitCode > 0 {
		return encodeErr.ExitCode
	}
	var notFound *toolchain.NotFoundError
	if errors.As(err, &notFound) {
		return ExitBinaryNotFound
	}
	return ExitFailure
}
