// Package toolchain locates the ffmpeg and ffprobe executables.
package toolchain

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Tool names.
const (
	FFmpeg  = "ffmpeg"
	FFprobe = "ffprobe"
)

// NotFoundError reports that a required binary could not be resolved.
type NotFoundError struct {
	Name     string
	Override string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Override != "" {
		return fmt.Sprintf("%s not found at %s: %v", e.Name, e.Override, e.Err)
	}
	return fmt.Sprintf("%s not found in PATH: %v", e.Name, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ExecutableName returns the platform file name for a tool.
func ExecutableName(name string) string {
	return executableName(name, runtime.GOOS)
}

func executableName(name, goos string) string {
	if goos == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}

// Resolve returns the path of the named tool. A non-empty override must
// point to an existing regular file; otherwise the tool is looked up in PATH.
func Resolve(name, override string) (string, error) {
	if override != "" {
		info, err := os.Stat(override)
		if err != nil {
			return "", &NotFoundError{Name: name, Override: override, Err: err}
		}
		if !info.Mode().IsRegular() {
			return "", &NotFoundError{Name: name, Override: override, Err: errors.New("not a regular file")}
		}
		return override, nil
	}

	path, err := exec.LookPath(ExecutableName(name))
	if err != nil {
		return "", &NotFoundError{Name: name, Err: err}
	}
	return path, nil
}
