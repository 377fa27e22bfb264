// Package process runs an encoder subprocess and reports its progress.
//
// A Supervisor owns exactly one child process:
//   - Output of the child (progress channel and stderr merged) is read by a
//     dedicated goroutine that forwards the newest frame count through a
//     bounded channel
//   - A poll loop applies the newest count to a Display
//   - Cancelling the context sends SIGINT, then SIGKILL after a timeout
//   - Non-zero exits become *EncodeError unless running verbose
//
// Example:
//
//	sup := process.NewSupervisor(args,
//	    process.WithDisplay(display.NewProgressBar(os.Stderr, "encode")),
//	    process.WithTotalFrames(total),
//	)
//	code, err := sup.Run(ctx, false)
package process
