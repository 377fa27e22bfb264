package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/ffjob/internal/api"
	"github.com/smazurov/ffjob/internal/config"
	"github.com/smazurov/ffjob/internal/display"
	"github.com/smazurov/ffjob/internal/events"
	"github.com/smazurov/ffjob/internal/ffmpeg"
	"github.com/smazurov/ffjob/internal/job"
	"github.com/smazurov/ffjob/internal/logging"
	"github.com/smazurov/ffjob/internal/metrics"
	"github.com/smazurov/ffjob/internal/nats"
	"github.com/smazurov/ffjob/internal/probe"
	"github.com/smazurov/ffjob/internal/process"
	"github.com/smazurov/ffjob/internal/toolchain"
)

// RunEncode runs the job named by opts.Job to completion and returns the
// process exit status. Progress and the summary line go to stderr.
func RunEncode(ctx context.Context, opts *config.Options, stderr io.Writer) int {
	logger := logging.GetLogger("encode")

	if opts.Job == "" {
		logger.Error("No job file given, pass --job or set job.file in the config")
		return ExitFailure
	}

	ffmpegPath, err := toolchain.Resolve(toolchain.FFmpeg, opts.FfmpegPath)
	if err != nil {
		logger.Error("Failed to resolve ffmpeg", "error", err)
		return ExitCode(err)
	}

	j, err := job.Load(opts.Job)
	if err != nil {
		logger.Error("Failed to load job", "job", opts.Job, "error", err)
		return ExitCode(err)
	}

	command, err := j.Command(ffmpegPath)
	if err != nil {
		logger.Error("Invalid command", "error", err)
		return ExitCode(err)
	}
	args, err := command.Args()
	if err != nil {
		logger.Error("Invalid command", "error", err)
		return ExitCode(err)
	}

	// ffprobe is only needed to size the progress bar.
	showProgress := (j.ProgressBar || opts.Progress) && !opts.Verbose
	var ffprobePath string
	if showProgress {
		if ffprobePath, err = toolchain.Resolve(toolchain.FFprobe, opts.FfprobePath); err != nil {
			logger.Error("Failed to resolve ffprobe", "error", err)
			return ExitCode(err)
		}
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	bus := events.New()
	detach := metrics.Attach(bus)
	defer detach()

	if opts.ListenAddr != "" {
		srv := api.NewServer(&api.Options{
			RunID:    runID,
			Command:  args,
			Output:   command.Output,
			EventBus: bus,
		})
		go func() {
			if serveErr := srv.Start(opts.ListenAddr); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("Status API failed", "addr", opts.ListenAddr, "error", serveErr)
			}
		}()
		defer func() {
			if stopErr := srv.Stop(); stopErr != nil {
				logger.Warn("Failed to stop status API", "error", stopErr)
			}
		}()
	}

	if opts.NatsURL != "" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()

		client := nats.NewRunClient(opts.NatsURL, runID, logging.GetLogger("nats"))
		if connErr := client.Connect(); connErr == nil {
			client.OnCancel(func(reason string) {
				logger.Warn("Cancel requested over NATS", "reason", reason)
				cancel()
			})
			detachNats := client.Attach(bus)
			defer client.Close()
			defer detachNats()
		}
	}

	finished := make(chan any, 1)
	unsubscribe := events.SubscribeToChannel[events.EncodeFinishedEvent](bus, finished)
	defer unsubscribe()

	supervisorOpts := []process.Option{
		process.WithRunID(runID),
		process.WithLogger(logging.GetLogger("encode")),
		process.WithLogParser(logging.GetLogger("ffmpeg").With("run_id", runID), ffmpeg.ParseLogLevel),
		process.WithEventBus(bus),
		process.WithPollInterval(opts.PollInterval()),
		process.WithGracefulTimeout(opts.GracefulTimeout()),
	}

	if showProgress {
		prober := probe.NewProber(ffprobePath, logging.GetLogger("probe"))
		supervisorOpts = append(supervisorOpts,
			process.WithDisplay(display.NewProgressBar(stderr, "encode")),
			process.WithTotalResolver(frameTotalResolver(command, prober, opts.CountFrames)),
		)
	}

	logger.Info("Starting encode", "command", ffmpeg.FormatArgs(args))
	started := time.Now()
	code, runErr := process.NewSupervisor(args, supervisorOpts...).Run(ctx, opts.Verbose)
	elapsed := time.Since(started)

	var frames int64
	select {
	case ev := <-finished:
		if e, ok := ev.(events.EncodeFinishedEvent); ok {
			frames = e.Frames
		}
	case <-time.After(250 * time.Millisecond):
	}

	if !opts.Verbose && code >= 0 {
		display.Summary(stderr, args[len(args)-1], code, frames, elapsed)
	}

	if runErr != nil {
		var encodeErr *process.EncodeError
		if errors.As(runErr, &encodeErr) && encodeErr.Canceled {
			logger.Warn("Encode interrupted", "exit_code", encodeErr.ExitCode)
			return ExitInterrupted
		}
		logger.Error("Encode failed", "error", runErr)
		return ExitCode(runErr)
	}
	return code
}

// frameTotalResolver returns the frame count of the output's primary video
// stream, probing inputs lazily.
func frameTotalResolver(command *ffmpeg.Command, src ffmpeg.CatalogSource, countFrames bool) process.TotalResolver {
	return func(ctx context.Context) (*int64, error) {
		d, err := command.PrimaryVideoStream(ctx, src, countFrames)
		if err != nil || d == nil {
			return nil, err
		}
		return d.FrameCount, nil
	}
}
