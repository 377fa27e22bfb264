package ffmpeg

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var frameRe = regexp.MustCompile(`frame=(\s*\d+)`)

// ParseFrame extracts the frame counter from a progress or stats line.
func ParseFrame(line string) (int64, bool) {
	m := frameRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(m[1]), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Progress is one complete block of ffmpeg's -progress report.
type Progress struct {
	Frame       int64
	FPS         float64
	BitrateKbps float64
	TotalSize   int64
	OutTime     time.Duration
	Speed       float64
	DupFrames   int64
	DropFrames  int64
	// Done is set on the final block ("progress=end").
	Done bool
}

// ProgressParser accumulates key=value lines until a "progress=" line
// closes the block.
type ProgressParser struct {
	pending map[string]string
}

// NewProgressParser returns an empty parser.
func NewProgressParser() *ProgressParser {
	return &ProgressParser{pending: make(map[string]string)}
}

// Feed consumes one line and returns a block when the line completes one.
// Lines without "=" are ignored.
func (p *ProgressParser) Feed(line string) (Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Progress{}, false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	p.pending[key] = value
	if key != "progress" {
		return Progress{}, false
	}

	block := p.pending
	p.pending = make(map[string]string)
	return progressFromBlock(block), true
}

func progressFromBlock(kv map[string]string) Progress {
	pr := Progress{Done: kv["progress"] == "end"}

	if v, err := strconv.ParseInt(kv["frame"], 10, 64); err == nil {
		pr.Frame = v
	}
	if v, err := strconv.ParseFloat(kv["fps"], 64); err == nil {
		pr.FPS = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(kv["bitrate"], "kbits/s")), 64); err == nil {
		pr.BitrateKbps = v
	}
	if v, err := strconv.ParseInt(kv["total_size"], 10, 64); err == nil {
		pr.TotalSize = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(kv["speed"], "x")), 64); err == nil {
		pr.Speed = v
	}
	if v, err := strconv.ParseInt(kv["dup_frames"], 10, 64); err == nil {
		pr.DupFrames = v
	}
	if v, err := strconv.ParseInt(kv["drop_frames"], 10, 64); err == nil {
		pr.DropFrames = v
	}
	if d, ok := parseOutTime(kv["out_time"]); ok {
		pr.OutTime = d
	} else if us, err := strconv.ParseInt(kv["out_time_us"], 10, 64); err == nil {
		pr.OutTime = time.Duration(us) * time.Microsecond
	}
	return pr
}

// parseOutTime parses "HH:MM:SS.micro" as written by ffmpeg.
func parseOutTime(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(math.Round(sec*1e6))*time.Microsecond, true
}
