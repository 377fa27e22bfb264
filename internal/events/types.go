package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeEncodeStarted uint32 = iota + 1
	TypeFrameProgress
	TypeEncodeFinished
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// EncodeStartedEvent is published once the encoder process is running.
type EncodeStartedEvent struct {
	RunID string `json:"run_id"`
	PID   int    `json:"pid"`
	// TotalFrames is -1 when the frame total is unknown.
	TotalFrames int64     `json:"total_frames"`
	Command     []string  `json:"command"`
	Timestamp   time.Time `json:"timestamp"`
}

// Type returns the event type identifier for EncodeStartedEvent.
func (e EncodeStartedEvent) Type() uint32 { return TypeEncodeStarted }

// FrameProgressEvent carries one block of the encoder's progress report.
type FrameProgressEvent struct {
	RunID       string        `json:"run_id"`
	Frame       int64         `json:"frame"`
	TotalFrames int64         `json:"total_frames"`
	FPS         float64       `json:"fps"`
	Speed       float64       `json:"speed"`
	BitrateKbps float64       `json:"bitrate_kbps"`
	DupFrames   int64         `json:"dup_frames"`
	DropFrames  int64         `json:"drop_frames"`
	OutTime     time.Duration `json:"out_time"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Type returns the event type identifier for FrameProgressEvent.
func (e FrameProgressEvent) Type() uint32 { return TypeFrameProgress }

// EncodeFinishedEvent is published after the encoder process has been reaped.
type EncodeFinishedEvent struct {
	RunID     string        `json:"run_id"`
	ExitCode  int           `json:"exit_code"`
	State     string        `json:"state"`
	Frames    int64         `json:"frames"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Type returns the event type identifier for EncodeFinishedEvent.
func (e EncodeFinishedEvent) Type() uint32 { return TypeEncodeFinished }
