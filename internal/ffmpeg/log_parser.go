package ffmpeg

import (
	"log/slog"
	"strings"
)

// ffmpegLevels maps the tags printed by -loglevel level+<n> to slog levels.
var ffmpegLevels = map[string]slog.Level{
	"quiet":   slog.LevelInfo,
	"panic":   slog.LevelError,
	"fatal":   slog.LevelError,
	"error":   slog.LevelError,
	"warning": slog.LevelWarn,
	"info":    slog.LevelInfo,
	"verbose": slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"trace":   slog.LevelDebug,
}

// ParseLogLevel splits an ffmpeg output line into its severity and message.
// The level tag comes first or right after one component tag such as
// "[libx264 @ 0x55d1]"; the component stays in the message. Untagged lines
// are info.
func ParseLogLevel(line string) (slog.Level, string) {
	var component string
	rest := line
	for range 2 {
		tag, after, ok := leadingTag(rest)
		if !ok {
			break
		}
		if level, known := ffmpegLevels[tag]; known {
			return level, component + after
		}
		component += "[" + tag + "] "
		rest = after
	}
	return slog.LevelInfo, line
}

func leadingTag(s string) (tag, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", s, false
	}
	return strings.Cut(s[1:], "] ")
}
