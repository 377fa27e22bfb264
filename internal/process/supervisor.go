package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/ffjob/internal/events"
	"github.com/smazurov/ffjob/internal/ffmpeg"
	"github.com/smazurov/ffjob/internal/logging"
)

// Display is the progress surface driven by the supervisor.
// A total <= 0 means the total is unknown.
type Display interface {
	Start(total int64)
	Update(completed, total int64)
	Stop()
}

// LogParser parses a log line and returns the log level and message.
type LogParser func(line string) (slog.Level, string)

// TotalResolver looks up the expected frame total. A nil result with a nil
// error means the total is unknown.
type TotalResolver func(ctx context.Context) (*int64, error)

// ErrAlreadyRun is returned when Run is called more than once.
var ErrAlreadyRun = errors.New("supervisor already ran")

const exitCodeCanceled = 130

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger for supervisor messages.
func WithLogger(l logging.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithLogParser sets the logger and parser used for child output in verbose mode.
func WithLogParser(l logging.Logger, parser LogParser) Option {
	return func(s *Supervisor) {
		s.processLogger = l
		s.logParser = parser
	}
}

// WithDisplay enables progress mode.
func WithDisplay(d Display) Option {
	return func(s *Supervisor) { s.display = d }
}

// WithEventBus publishes lifecycle and progress events to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(s *Supervisor) { s.bus = bus }
}

// WithTotalFrames fixes the frame total.
func WithTotalFrames(n int64) Option {
	return func(s *Supervisor) { s.totalFrames = &n }
}

// WithTotalResolver resolves the frame total lazily, only in progress mode.
func WithTotalResolver(r TotalResolver) Option {
	return func(s *Supervisor) { s.resolveTotal = r }
}

// WithRunID tags events and log lines with id.
func WithRunID(id string) Option {
	return func(s *Supervisor) { s.runID = id }
}

// WithPollInterval sets how often the display is refreshed.
func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.pollInterval = d }
}

// WithGracefulTimeout sets how long to wait after SIGINT before killing.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.gracefulTimeout = d }
}

// Supervisor launches one encoder process and monitors it to completion.
type Supervisor struct {
	args          []string
	runID         string
	logger        logging.Logger
	processLogger logging.Logger
	logParser     LogParser
	display       Display
	bus           *events.Bus
	totalFrames   *int64
	resolveTotal  TotalResolver

	pollInterval    time.Duration
	gracefulTimeout time.Duration
	killTimeout     time.Duration

	mu    sync.Mutex
	state State
	cmd   *exec.Cmd
}

// NewSupervisor creates a supervisor for the argument vector args, binary first.
func NewSupervisor(args []string, opts ...Option) *Supervisor {
	s := &Supervisor{
		args:            args,
		logger:          logging.GetLogger("encode"),
		state:           StateIdle,
		pollInterval:    50 * time.Millisecond,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID != "" {
		s.logger = withAttrs(s.logger, "run_id", s.runID)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// runningProcess holds channels for monitoring a running subprocess.
type runningProcess struct {
	processDone <-chan error
	outputDone  <-chan struct{}
	frames      <-chan int64
	output      *os.File
}

// monitor carries per-run settings into the output reader.
type monitor struct {
	verbose bool
	total   int64
	tail    *tailBuffer
}

// Run launches the encoder and blocks until it exits. In verbose mode the
// child's exit code is returned with a nil error. Otherwise a non-zero exit
// is returned together with an *EncodeError. Cancelling ctx stops the child
// and counts as a failure.
func (s *Supervisor) Run(ctx context.Context, verbose bool) (int, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return -1, ErrAlreadyRun
	}
	s.state = StateRunning
	s.mu.Unlock()

	if len(s.args) == 0 {
		s.setState(StateFailed)
		return -1, errors.New("empty command")
	}

	progress := s.display != nil && !verbose
	total := int64(-1)
	if progress {
		total = s.frameTotal(ctx)
	}

	mon := &monitor{verbose: verbose, total: total, tail: newTailBuffer(defaultTailLines)}
	rp, err := s.startProcess(mon)
	if err != nil {
		s.setState(StateFailed)
		return -1, err
	}
	started := time.Now()

	var display Display = nopDisplay{}
	if progress {
		display = s.display
	}
	display.Start(total)
	defer display.Stop()

	s.publish(events.EncodeStartedEvent{
		RunID:       s.runID,
		PID:         s.cmd.Process.Pid,
		TotalFrames: total,
		Command:     s.args,
		Timestamp:   started,
	})

	exitCode, canceled, lastFrame := s.watch(ctx, rp, display, total)

	if exitCode == 0 && canceled {
		exitCode = exitCodeCanceled
	}

	state := StateFailed
	if exitCode == 0 {
		state = StateCompleted
		if total > 0 {
			display.Update(total, total)
			lastFrame = total
		}
	}
	s.setState(state)

	s.logger.Info("Encoder exited", "exit_code", exitCode, "state", state, "duration", time.Since(started).Round(time.Millisecond))
	s.publish(events.EncodeFinishedEvent{
		RunID:     s.runID,
		ExitCode:  exitCode,
		State:     string(state),
		Frames:    lastFrame,
		Duration:  time.Since(started),
		Timestamp: time.Now(),
	})

	if verbose || exitCode == 0 {
		return exitCode, nil
	}
	return exitCode, &EncodeError{ExitCode: exitCode, Tail: mon.tail.Lines(), Canceled: canceled}
}

// frameTotal resolves the progress total, returning -1 when unknown.
func (s *Supervisor) frameTotal(ctx context.Context) int64 {
	if s.totalFrames != nil && *s.totalFrames > 0 {
		return *s.totalFrames
	}
	if s.resolveTotal == nil {
		s.logger.Warn("No frame total available, progress will be indeterminate")
		return -1
	}
	n, err := s.resolveTotal(ctx)
	if err != nil {
		s.logger.Warn("Could not determine frame total, progress will be indeterminate", "error", err)
		return -1
	}
	if n == nil || *n <= 0 {
		s.logger.Warn("No frame total available, progress will be indeterminate")
		return -1
	}
	return *n
}

// startProcess starts the child with stdout and stderr merged into one pipe.
func (s *Supervisor) startProcess(mon *monitor) (*runningProcess, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}

	s.cmd = exec.Command(s.args[0], s.args[1:]...)
	s.cmd.Stdout = writer
	s.cmd.Stderr = writer
	configureCommand(s.cmd)

	if err := s.cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		s.logger.Error("Failed to start encoder", "error", err, "command", ffmpeg.FormatArgs(s.args))
		return nil, fmt.Errorf("start %s: %w", s.args[0], err)
	}
	// The child holds its own copy of the write end.
	_ = writer.Close()

	s.logger.Info("Encoder started", "pid", s.cmd.Process.Pid)
	s.logger.Debug("Encoder command", "command", ffmpeg.FormatArgs(s.args))

	frames := make(chan int64, 1)
	outputDone := make(chan struct{})
	go func() {
		defer close(outputDone)
		s.streamOutput(reader, mon, frames)
	}()

	processDone := make(chan error, 1)
	go func() {
		processDone <- s.cmd.Wait()
	}()

	return &runningProcess{
		processDone: processDone,
		outputDone:  outputDone,
		frames:      frames,
		output:      reader,
	}, nil
}

// watch polls for frame updates until the child exits. It always reaps the
// child and stops the reader before returning.
func (s *Supervisor) watch(ctx context.Context, rp *runningProcess, display Display, total int64) (exitCode int, canceled bool, lastFrame int64) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	apply := func(n int64) {
		lastFrame = n
		display.Update(n, total)
	}

loop:
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping encoder")
			canceled = true
			s.sendStopSignal()
			exitCode = s.waitForExit(rp.processDone, s.gracefulTimeout)
			break loop
		case processErr := <-rp.processDone:
			exitCode = s.handleProcessExit(processErr)
			break loop
		case <-ticker.C:
			select {
			case n := <-rp.frames:
				apply(n)
			default:
			}
		}
	}

	s.waitOutputDone(rp)
	select {
	case n := <-rp.frames:
		apply(n)
	default:
	}
	return exitCode, canceled, lastFrame
}

// waitOutputDone waits for the reader to hit EOF. Descendants of the child
// can keep the pipe open, so the read end is closed after a grace period.
func (s *Supervisor) waitOutputDone(rp *runningProcess) {
	select {
	case <-rp.outputDone:
	case <-time.After(s.killTimeout):
		s.logger.Warn("Output still open after exit, closing")
		_ = rp.output.Close()
		<-rp.outputDone
		return
	}
	_ = rp.output.Close()
}

// streamOutput reads merged child output line by line.
func (s *Supervisor) streamOutput(reader io.Reader, mon *monitor, frames chan int64) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	parser := ffmpeg.NewProgressParser()

	logger := s.processLogger
	if logger == nil {
		logger = s.logger
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if n, ok := ffmpeg.ParseFrame(line); ok {
			offerLatest(frames, n)
		}

		if pr, ok := parser.Feed(line); ok {
			s.publish(events.FrameProgressEvent{
				RunID:       s.runID,
				Frame:       pr.Frame,
				TotalFrames: mon.total,
				FPS:         pr.FPS,
				Speed:       pr.Speed,
				BitrateKbps: pr.BitrateKbps,
				DupFrames:   pr.DupFrames,
				DropFrames:  pr.DropFrames,
				OutTime:     pr.OutTime,
				Timestamp:   time.Now(),
			})
		}

		if isProgressLine(line) {
			if mon.verbose {
				logger.Debug(line)
			}
			continue
		}

		mon.tail.Add(line)
		if mon.verbose {
			logLine(logger, s.logParser, line)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		s.logger.Warn("Error reading encoder output", "error", err)
	}
}

func logLine(logger logging.Logger, parser LogParser, line string) {
	level, msg := slog.LevelInfo, line
	if parser != nil {
		level, msg = parser(line)
	}

	switch {
	case level >= slog.LevelError:
		logger.Error(msg)
	case level >= slog.LevelWarn:
		logger.Warn(msg)
	case level >= slog.LevelInfo:
		logger.Info(msg)
	default:
		logger.Debug(msg)
	}
}

// offerLatest replaces any unread value in ch with n.
// Only one goroutine may send on ch.
func offerLatest(ch chan int64, n int64) {
	for {
		select {
		case ch <- n:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// isProgressLine reports whether line is a bare key=value pair from the
// -progress report rather than human-readable output.
func isProgressLine(line string) bool {
	key, value, ok := strings.Cut(line, "=")
	if !ok || key == "" || strings.ContainsAny(strings.TrimSpace(value), " \t") {
		return false
	}
	for _, r := range key {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// scanLines splits on \n or \r so carriage-return status updates are seen
// as they are written.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code, ok := signalExitCode(exitErr.ProcessState); ok {
			return code
		}
		return exitErr.ExitCode()
	}
	return 1
}

// handleProcessExit extracts exit code from process error and logs non-ExitError errors.
func (s *Supervisor) handleProcessExit(processErr error) int {
	exitCode := exitCodeFromError(processErr)
	var exitErr *exec.ExitError
	if processErr != nil && !errors.As(processErr, &exitErr) {
		s.logger.Error("Encoder wait failed", "error", processErr)
	}
	return exitCode
}

// sendStopSignal asks the encoder to finish without waiting.
func (s *Supervisor) sendStopSignal() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	s.logger.Info("Sending SIGINT to encoder", "pid", s.cmd.Process.Pid)
	if err := interruptProcess(s.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// waitForExit waits for the process to exit with a timeout, force-killing if needed.
func (s *Supervisor) waitForExit(processDone <-chan error, timeout time.Duration) int {
	select {
	case err := <-processDone:
		return exitCodeFromError(err)
	case <-time.After(timeout):
		s.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", timeout)
		if s.cmd.Process != nil {
			if err := killProcess(s.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.logger.Error("Failed to kill encoder", "error", err)
			}
		}
		select {
		case <-processDone:
		case <-time.After(s.killTimeout):
			s.logger.Error("Encoder did not exit after kill signal")
		}
		return 137
	}
}

func (s *Supervisor) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func withAttrs(l logging.Logger, args ...any) logging.Logger {
	if w, ok := l.(interface {
		With(args ...any) *slog.Logger
	}); ok {
		return w.With(args...)
	}
	return l
}

type nopDisplay struct{}

func (nopDisplay) Start(int64)         {}
func (nopDisplay) Update(int64, int64) {}
func (nopDisplay) Stop()               {}
