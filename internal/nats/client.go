package nats

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/ffjob/internal/events"
	"github.com/smazurov/ffjob/internal/logging"
)

// RunClient mirrors one run's encode events onto NATS and listens for
// cancel commands addressed to it. It degrades to a no-op when NATS is
// unavailable.
type RunClient struct {
	url       string
	runID     string
	conn      *nats.Conn
	sub       *nats.Subscription
	logger    *slog.Logger
	mu        sync.RWMutex
	onCancel  func(reason string)
	connected bool
}

// NewRunClient creates a client for runID. A nil logger uses the "nats"
// module logger.
func NewRunClient(url, runID string, logger *slog.Logger) *RunClient {
	if logger == nil {
		logger = logging.GetLogger("nats")
	}
	return &RunClient{
		url:    url,
		runID:  runID,
		logger: logger.With("run_id", runID),
	}
}

// Connect dials the server. Reconnects are retried for the life of the run.
func (c *RunClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := []nats.Option{
		nats.Name("ffjob-" + c.runID),
		nats.Timeout(2 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			if err != nil {
				c.logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.mu.Lock()
			c.connected = true
			c.mu.Unlock()
			c.logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(c.url, opts...)
	if err != nil {
		c.logger.Warn("Failed to connect to NATS, events will not be published", "url", c.url, "error", err)
		return err
	}

	c.conn = conn
	c.connected = true
	c.logger.Info("Connected to NATS", "url", c.url)

	c.subscribeControlLocked()
	return nil
}

// subscribeControlLocked must be called with c.mu held. The client library
// restores subscriptions across reconnects.
func (c *RunClient) subscribeControlLocked() {
	if c.conn == nil || c.onCancel == nil || c.sub != nil {
		return
	}

	sub, err := c.conn.Subscribe(SubjectControlCancel(c.runID), func(msg *nats.Msg) {
		ctrl, err := UnmarshalControl(msg.Data)
		if err != nil {
			c.logger.Warn("Failed to unmarshal control message", "error", err)
			return
		}
		if ctrl.Action != "cancel" {
			c.logger.Debug("Ignoring control message", "action", ctrl.Action)
			return
		}

		c.logger.Info("Received cancel command", "reason", ctrl.Reason)
		c.mu.RLock()
		fn := c.onCancel
		c.mu.RUnlock()
		if fn != nil {
			fn(ctrl.Reason)
		}
	})
	if err != nil {
		c.logger.Warn("Failed to subscribe to control commands", "error", err)
		return
	}
	c.sub = sub
}

// OnCancel sets the callback for cancel commands.
func (c *RunClient) OnCancel(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCancel = fn
	c.subscribeControlLocked()
}

// Attach publishes encode events from bus and returns a function that
// detaches them.
func (c *RunClient) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.EncodeStartedEvent) {
			if e.RunID == c.runID {
				c.PublishStarted(e)
			}
		}),
		bus.Subscribe(func(e events.FrameProgressEvent) {
			if e.RunID == c.runID {
				c.PublishProgress(e)
			}
		}),
		bus.Subscribe(func(e events.EncodeFinishedEvent) {
			if e.RunID == c.runID {
				c.PublishFinished(e)
			}
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// PublishStarted publishes a start message. No-op when disconnected.
func (c *RunClient) PublishStarted(e events.EncodeStartedEvent) {
	c.publish(SubjectRunStarted(c.runID), StateMessage{
		RunID:       c.runID,
		Timestamp:   e.Timestamp.Format(time.RFC3339),
		State:       "running",
		PID:         e.PID,
		Command:     e.Command,
		TotalFrames: e.TotalFrames,
	})
}

// PublishProgress publishes one progress block. No-op when disconnected.
func (c *RunClient) PublishProgress(e events.FrameProgressEvent) {
	c.publish(SubjectRunProgress(c.runID), ProgressMessage{
		RunID:           c.runID,
		Timestamp:       e.Timestamp.Format(time.RFC3339),
		Frame:           e.Frame,
		TotalFrames:     e.TotalFrames,
		FPS:             e.FPS,
		Speed:           e.Speed,
		DroppedFrames:   e.DropFrames,
		DuplicateFrames: e.DupFrames,
	})
}

// PublishFinished publishes the run result and flushes it, since the
// process usually exits right after. No-op when disconnected.
func (c *RunClient) PublishFinished(e events.EncodeFinishedEvent) {
	code := e.ExitCode
	c.publish(SubjectRunFinished(c.runID), StateMessage{
		RunID:     c.runID,
		Timestamp: e.Timestamp.Format(time.RFC3339),
		State:     e.State,
		ExitCode:  &code,
		Frames:    e.Frames,
	})

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil {
		if err := conn.FlushTimeout(time.Second); err != nil {
			c.logger.Debug("Failed to flush NATS connection", "error", err)
		}
	}
}

func (c *RunClient) publish(subject string, msg interface{ Marshal() ([]byte, error) }) {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if conn == nil || !connected {
		return
	}

	data, err := msg.Marshal()
	if err != nil {
		c.logger.Warn("Failed to marshal message", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		c.logger.Warn("Failed to publish", "subject", subject, "error", err)
	}
}

// IsConnected returns true if connected to NATS.
func (c *RunClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.conn != nil
}

// Close drains the subscription and closes the connection.
func (c *RunClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub != nil {
		_ = c.sub.Unsubscribe()
		c.sub = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.logger.Debug("NATS client closed")
}

// ControlPublisher sends control commands to running encodes.
type ControlPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewControlPublisher connects a publisher for control commands.
func NewControlPublisher(url string, logger *slog.Logger) (*ControlPublisher, error) {
	if logger == nil {
		logger = logging.GetLogger("nats")
	}
	conn, err := nats.Connect(url,
		nats.Name("ffjob-control"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, err
	}
	return &ControlPublisher{conn: conn, logger: logger}, nil
}

// Cancel asks the encode with runID to stop.
func (p *ControlPublisher) Cancel(runID, reason string) error {
	msg := ControlMessage{
		Action:    "cancel",
		RunID:     runID,
		Timestamp: time.Now().Format(time.RFC3339),
		Reason:    reason,
	}
	data, err := msg.Marshal()
	if err != nil {
		return err
	}
	if err := p.conn.Publish(SubjectControlCancel(runID), data); err != nil {
		return err
	}
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		return err
	}
	p.logger.Info("Sent cancel command", "run_id", runID, "reason", reason)
	return nil
}

// Close closes the publisher connection.
func (p *ControlPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
