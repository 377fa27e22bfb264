// Package nats publishes encode lifecycle events to a NATS server and
// accepts remote cancel commands for the running encode.
//
// # Subject Hierarchy
//
//	ffjob.runs.{run_id}.started     # encode started (ffjob → subscribers)
//	ffjob.runs.{run_id}.progress    # one message per progress block
//	ffjob.runs.{run_id}.finished    # exit code and final frame count
//	ffjob.control.{run_id}.cancel   # cancel the run (operator → ffjob)
//
// Messaging is fire-and-forget core NATS. When the server is unreachable the
// encode still runs and publishing is skipped.
//
// # Debugging with nats CLI
//
// Follow every run:
//
//	nats sub "ffjob.runs.>"
//
// Cancel a run by id (the id is logged at start and served at /api/run):
//
//	nats pub "ffjob.control.7f1c2f9e-3b7a-4c41-9d7e-0a8c5d0f1e22.cancel" \
//	  '{"action":"cancel","run_id":"7f1c2f9e-3b7a-4c41-9d7e-0a8c5d0f1e22","reason":"manual"}'
//
// # Message Formats
//
// ProgressMessage (ffjob.runs.{id}.progress):
//
//	{
//	  "run_id": "7f1c2f9e-...",
//	  "timestamp": "2026-01-01T12:00:00Z",
//	  "frame": 1200,
//	  "total_frames": 14400,
//	  "fps": 48.5,
//	  "speed": 2.02,
//	  "dropped_frames": 0,
//	  "duplicate_frames": 3
//	}
//
// StateMessage (ffjob.runs.{id}.started and .finished):
//
//	{
//	  "run_id": "7f1c2f9e-...",
//	  "timestamp": "2026-01-01T12:00:00Z",
//	  "state": "succeeded",
//	  "exit_code": 0,
//	  "frames": 14400
//	}
package nats
