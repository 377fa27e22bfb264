package config

import (
	"time"

	"github.com/smazurov/ffjob/internal/logging"
)

// Options is the flat settings struct shared by the root command and its
// subcommands. Each field maps to a CLI flag, a dotted TOML key and an
// FFJOB_-prefixed environment variable.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"ffjob.toml"`

	// Job settings
	Job         string `help:"Job document to run (JSON)" short:"j" toml:"job.file" env:"JOB_FILE"`
	Verbose     bool   `help:"Pass encoder output through instead of drawing a progress bar" short:"v" toml:"run.verbose" env:"RUN_VERBOSE"`
	Progress    bool   `help:"Draw a progress bar even if the job does not ask for one" toml:"run.progress" env:"RUN_PROGRESS"`
	CountFrames bool   `help:"Decode the primary video stream to count frames when the container has no count" toml:"probe.count_frames" env:"PROBE_COUNT_FRAMES"`

	// Binaries
	FfmpegPath  string `help:"Path to the ffmpeg binary (searched on PATH when empty)" toml:"binaries.ffmpeg" env:"FFMPEG_PATH"`
	FfprobePath string `help:"Path to the ffprobe binary (searched on PATH when empty)" toml:"binaries.ffprobe" env:"FFPROBE_PATH"`

	// Supervisor tuning
	PollIntervalMs    int `help:"Progress poll interval in milliseconds" default:"50" toml:"run.poll_interval_ms" env:"RUN_POLL_INTERVAL_MS"`
	GracefulTimeoutMs int `help:"Time to wait after SIGINT before killing the encoder, in milliseconds" default:"5000" toml:"run.graceful_timeout_ms" env:"RUN_GRACEFUL_TIMEOUT_MS"`

	// Status API
	ListenAddr string `help:"Serve run status, events and metrics on this address while encoding (e.g. :9464)" toml:"server.listen" env:"LISTEN_ADDR"`

	// Messaging
	NatsURL string `help:"Publish encode events to this NATS server and accept cancel commands (e.g. nats://127.0.0.1:4222)" toml:"nats.url" env:"NATS_URL"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"warn" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingJournal bool   `help:"Also send logs to the systemd journal" toml:"logging.journal" env:"LOGGING_JOURNAL"`
	LoggingProbe   string `help:"Probe logging level" toml:"logging.probe" env:"LOGGING_PROBE"`
	LoggingEncode  string `help:"Encode supervisor logging level" toml:"logging.encode" env:"LOGGING_ENCODE"`
	LoggingFfmpeg  string `help:"Level for forwarded ffmpeg output" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingJob     string `help:"Job loading logging level" toml:"logging.job" env:"LOGGING_JOB"`
	LoggingAPI     string `help:"Status API logging level" toml:"logging.api" env:"LOGGING_API"`
	LoggingNats    string `help:"NATS client logging level" toml:"logging.nats" env:"LOGGING_NATS"`
}

// LoggingConfig returns the logging configuration. Module levels left
// empty fall back to the global level.
func (o *Options) LoggingConfig() logging.Config {
	modules := make(map[string]string)
	for module, level := range map[string]string{
		"probe":  o.LoggingProbe,
		"encode": o.LoggingEncode,
		"ffmpeg": o.LoggingFfmpeg,
		"job":    o.LoggingJob,
		"api":    o.LoggingAPI,
		"nats":   o.LoggingNats,
	} {
		if level != "" {
			modules[module] = level
		}
	}
	return logging.Config{
		Level:   o.LoggingLevel,
		Format:  o.LoggingFormat,
		Journal: o.LoggingJournal,
		Modules: modules,
	}
}

// PollInterval returns the progress poll interval, defaulting to 50ms.
func (o *Options) PollInterval() time.Duration {
	return millis(o.PollIntervalMs, 50*time.Millisecond)
}

// GracefulTimeout returns how long to wait for a clean encoder exit after
// an interrupt, defaulting to 5s.
func (o *Options) GracefulTimeout() time.Duration {
	return millis(o.GracefulTimeoutMs, 5*time.Second)
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
