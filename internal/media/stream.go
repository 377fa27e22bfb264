// Package media defines the stream types shared by the probe and ffmpeg layers.
package media

import (
	"fmt"
	"strings"
)

// StreamType is the kind of elementary stream inside a container.
// The zero value means "unset" wherever a type is optional.
type StreamType string

// Stream types reported by ffprobe and accepted by ffmpeg stream specifiers.
const (
	Video      StreamType = "video"
	Audio      StreamType = "audio"
	Subtitle   StreamType = "subtitle"
	Data       StreamType = "data"
	Attachment StreamType = "attachment"
	Other      StreamType = "other"

	// All selects every stream of a known type. Only valid as a filter.
	All StreamType = "all"
)

// Letter returns the one-character form used in ffmpeg stream specifiers.
// Unset, Other and All have no letter and return "".
func (t StreamType) Letter() string {
	switch t {
	case Video:
		return "v"
	case Audio:
		return "a"
	case Subtitle:
		return "s"
	case Data:
		return "d"
	case Attachment:
		return "t"
	default:
		return ""
	}
}

// Selectable reports whether t can appear in a stream specifier.
func (t StreamType) Selectable() bool {
	return t.Letter() != ""
}

func (t StreamType) String() string {
	if t == "" {
		return "unset"
	}
	return string(t)
}

// ParseStreamType accepts a full name or a specifier letter in any case;
// only the first character is significant, so "Video", "v" and "V" are all video.
// An empty string yields the unset type.
func ParseStreamType(s string) (StreamType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	switch strings.ToLower(s[:1]) {
	case "v":
		return Video, nil
	case "a":
		return Audio, nil
	case "s":
		return Subtitle, nil
	case "d":
		return Data, nil
	case "t":
		return Attachment, nil
	}
	return "", fmt.Errorf("unknown stream type %q", s)
}

// FromCodecType maps an ffprobe codec_type to a StreamType.
func FromCodecType(codecType string) StreamType {
	switch strings.ToLower(codecType) {
	case "video":
		return Video
	case "audio":
		return Audio
	case "subtitle":
		return Subtitle
	case "data":
		return Data
	case "attachment":
		return Attachment
	default:
		return Other
	}
}
