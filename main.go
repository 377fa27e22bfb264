package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/ffjob/cmd"
	"github.com/smazurov/ffjob/internal/config"
	"github.com/smazurov/ffjob/internal/logging"
	"github.com/smazurov/ffjob/internal/version"
)

func main() {
	// Subcommands read the same settings after the root hook has loaded them.
	settings := &config.Options{}

	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *config.Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Error("Failed to load config", "config", opts.Config, "error", loadErr)
			os.Exit(cmd.ExitFailure)
		}
		logging.Initialize(opts.LoggingConfig())
		*settings = *opts

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			code := cmd.RunEncode(ctx, settings, os.Stderr)
			cancel()
			os.Exit(code)
		})

		hooks.OnStop(func() {
			logging.GetLogger("encode").Info("Interrupt received, stopping encoder")
			cancel()
			// RunEncode exits the process once the encoder is gone; this
			// only bounds the wait if it does not.
			time.Sleep(settings.GracefulTimeout() + 10*time.Second)
			os.Exit(cmd.ExitInterrupted)
		})
	})

	root := cli.Root()
	root.Use = "ffjob"
	root.Short = "Run ffmpeg encode jobs with progress"
	root.Long = `ffjob turns a JSON job document into an ffmpeg invocation and runs it, ` +
		`showing a progress bar based on the primary video stream's frame count.`
	root.Version = version.String()

	root.AddCommand(cmd.CreateProbeCmd(settings))
	root.AddCommand(cmd.CreateRenderCmd(settings))
	root.AddCommand(cmd.CreateValidateCmd())
	root.AddCommand(cmd.CreateWatchCmd(settings))
	root.AddCommand(cmd.CreateCancelCmd(settings))

	cli.Run()
}
