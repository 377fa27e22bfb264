package nats

import (
	"encoding/json"
	"fmt"
)

// Subject prefixes for NATS topics.
const (
	SubjectRunsPrefix    = "ffjob.runs"
	SubjectControlPrefix = "ffjob.control"
)

// SubjectRunStarted returns the subject a run's start is published on.
func SubjectRunStarted(runID string) string {
	return fmt.Sprintf("%s.%s.started", SubjectRunsPrefix, runID)
}

// SubjectRunProgress returns the subject for a run's progress blocks.
func SubjectRunProgress(runID string) string {
	return fmt.Sprintf("%s.%s.progress", SubjectRunsPrefix, runID)
}

// SubjectRunFinished returns the subject a run's result is published on.
func SubjectRunFinished(runID string) string {
	return fmt.Sprintf("%s.%s.finished", SubjectRunsPrefix, runID)
}

// SubjectControlCancel returns the subject that cancels a run.
func SubjectControlCancel(runID string) string {
	return fmt.Sprintf("%s.%s.cancel", SubjectControlPrefix, runID)
}

// ProgressMessage carries one progress block.
type ProgressMessage struct {
	RunID           string  `json:"run_id"`
	Timestamp       string  `json:"timestamp"`
	Frame           int64   `json:"frame"`
	TotalFrames     int64   `json:"total_frames"`
	FPS             float64 `json:"fps"`
	Speed           float64 `json:"speed"`
	DroppedFrames   int64   `json:"dropped_frames"`
	DuplicateFrames int64   `json:"duplicate_frames"`
}

// Marshal serializes the message to JSON.
func (m ProgressMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// StateMessage reports a run starting or finishing.
type StateMessage struct {
	RunID       string   `json:"run_id"`
	Timestamp   string   `json:"timestamp"`
	State       string   `json:"state"` // running, succeeded, failed
	PID         int      `json:"pid,omitempty"`
	Command     []string `json:"command,omitempty"`
	TotalFrames int64    `json:"total_frames,omitempty"`
	ExitCode    *int     `json:"exit_code,omitempty"`
	Frames      int64    `json:"frames,omitempty"`
}

// Marshal serializes the message to JSON.
func (m StateMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ControlMessage is a command sent to a running encode.
type ControlMessage struct {
	Action    string `json:"action"` // cancel
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalProgress deserializes a ProgressMessage from JSON.
func UnmarshalProgress(data []byte) (ProgressMessage, error) {
	var m ProgressMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalState deserializes a StateMessage from JSON.
func UnmarshalState(data []byte) (StateMessage, error) {
	var m StateMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalControl deserializes a ControlMessage from JSON.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
