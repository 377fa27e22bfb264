package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/smazurov/ffjob/internal/job"
)

// CreateValidateCmd creates the validate command.
func CreateValidateCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate JOB...",
		Short: "Check job documents without running them",
		Long: `Decodes and validates each JOB and checks that it renders to a valid ffmpeg command. ` +
			`Exits with status 100 if any document fails schema validation.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(c *cobra.Command, args []string) {
			if code := validateJobs(c, args, quiet); code != ExitOK {
				os.Exit(code)
			}
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report invalid documents")
	return cmd
}

// validateJobs reports on every path and returns the worst exit status:
// a schema failure outranks any other failure.
func validateJobs(c *cobra.Command, paths []string, quiet bool) int {
	ok := color.New(color.FgHiGreen)
	bad := color.New(color.FgHiRed)

	code := ExitOK
	for _, path := range paths {
		err := validateJob(path)
		if err == nil {
			if !quiet {
				ok.Fprint(c.OutOrStdout(), "ok ")
				fmt.Fprintln(c.OutOrStdout(), path)
			}
			continue
		}

		bad.Fprint(c.ErrOrStderr(), "invalid ")
		fmt.Fprintf(c.ErrOrStderr(), "%v\n", err)

		switch jobCode := ExitCode(err); {
		case jobCode == job.ExitSchemaInvalid:
			code = jobCode
		case code == ExitOK:
			code = jobCode
		}
	}
	return code
}

func validateJob(path string) error {
	j, err := job.Load(path)
	if err != nil {
		return err
	}
	_, err = j.Command("ffmpeg")
	return err
}
