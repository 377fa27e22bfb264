// Package models holds the request and response bodies of the status API.
package models

import "time"

// HealthData reports whether the server is up.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2026-01-15 14:30" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// RunData describes the encode this process is running.
type RunData struct {
	RunID       string    `json:"run_id" example:"7f1c2f9e-3b7a-4c41-9d7e-0a8c5d0f1e22" doc:"Run identifier"`
	Output      string    `json:"output" example:"/srv/media/out.mkv" doc:"Absolute output path"`
	Command     []string  `json:"command" doc:"ffmpeg argument vector"`
	StartedAt   time.Time `json:"started_at" doc:"When the run was created"`
	Running     bool      `json:"running" doc:"Whether the encoder process is alive"`
	Frames      int64     `json:"frames" example:"1200" doc:"Frames encoded so far"`
	TotalFrames int64     `json:"total_frames" example:"14400" doc:"Expected frame total, -1 when unknown"`
	Percent     *float64  `json:"percent,omitempty" example:"8.3" doc:"Completion percentage when the total is known"`
	FPS         float64   `json:"fps" example:"48.5" doc:"Current encoding rate"`
	Speed       float64   `json:"speed" example:"2.02" doc:"Speed relative to realtime"`
	ExitCode    *int      `json:"exit_code,omitempty" example:"0" doc:"Encoder exit code once finished"`
}

type RunResponse struct {
	Body RunData
}
