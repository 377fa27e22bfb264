package probe

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/smazurov/ffjob/internal/media"
)

// StreamDescriptor is the normalized view of one stream in a media file.
// Optional attributes are nil or empty when ffprobe did not report them
// or reported something unparsable.
type StreamDescriptor struct {
	Index      int              `json:"index"`
	Type       media.StreamType `json:"type"`
	Codec      string           `json:"codec"`
	CodecLong  string           `json:"codec_long,omitempty"`
	Language   string           `json:"language,omitempty"`
	Title      string           `json:"title,omitempty"`
	Bitrate    *int64           `json:"bitrate,omitempty"`
	FrameCount *int64           `json:"frame_count,omitempty"`
	Channels   *int             `json:"channels,omitempty"`
	Forced     bool             `json:"forced"`
	Default    bool             `json:"default"`
}

// Catalog is the immutable list of streams found in one media file,
// kept in file order.
type Catalog struct {
	path    string
	streams []StreamDescriptor
}

// Path returns the media file the catalog describes.
func (c *Catalog) Path() string {
	return c.path
}

// Len returns the number of streams of any type.
func (c *Catalog) Len() int {
	return len(c.streams)
}

// Streams returns every stream in file order. Index is the raw position
// in the file, which is what "-map <file>:<n>" addresses.
func (c *Catalog) Streams() []StreamDescriptor {
	out := make([]StreamDescriptor, len(c.streams))
	copy(out, c.streams)
	return out
}

// Filter returns the streams of type t renumbered from zero in file order.
// media.All returns every stream except those of type Other.
// Each call builds a fresh slice; the catalog itself is never modified.
func (c *Catalog) Filter(t media.StreamType) []StreamDescriptor {
	var out []StreamDescriptor
	for _, s := range c.streams {
		if t == media.All {
			if s.Type == media.Other {
				continue
			}
		} else if s.Type != t {
			continue
		}
		s.Index = len(out)
		out = append(out, s)
	}
	return out
}

// ParseCatalog builds a catalog from ffprobe's -show_streams JSON.
// countFrames must match whether ffprobe ran with -count_frames; only then
// is nb_read_frames trusted as the frame total.
func ParseCatalog(path string, data []byte, countFrames bool) (*Catalog, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ProbeError{Path: path, Err: err}
	}
	if out.Streams == nil {
		return nil, &ProbeError{Path: path, Err: errors.New("output has no streams list")}
	}

	streams := make([]StreamDescriptor, 0, len(*out.Streams))
	for i, raw := range *out.Streams {
		d := raw.descriptor(countFrames)
		d.Index = i
		streams = append(streams, d)
	}
	return &Catalog{path: path, streams: streams}, nil
}

type ffprobeOutput struct {
	Streams *[]ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecName     looseString            `json:"codec_name"`
	CodecLongName looseString            `json:"codec_long_name"`
	CodecType     looseString            `json:"codec_type"`
	BitRate       looseString            `json:"bit_rate"`
	NbFrames      looseString            `json:"nb_frames"`
	NbReadFrames  looseString            `json:"nb_read_frames"`
	Channels      looseString            `json:"channels"`
	Disposition   map[string]looseString `json:"disposition"`
	Tags          map[string]looseString `json:"tags"`
}

func (s ffprobeStream) descriptor(countFrames bool) StreamDescriptor {
	d := StreamDescriptor{
		Type:      media.FromCodecType(string(s.CodecType)),
		Codec:     string(s.CodecName),
		CodecLong: string(s.CodecLongName),
		Language:  s.tag("language"),
		Title:     s.tag("title"),
		Forced:    s.flag("forced"),
		Default:   s.flag("default"),
	}

	d.Bitrate = firstPositive(
		string(s.BitRate),
		s.langTag("BPS", d.Language),
		s.tag("BPS"),
	)

	var counted string
	if countFrames {
		counted = string(s.NbReadFrames)
	}
	d.FrameCount = firstPositive(
		counted,
		string(s.NbFrames),
		s.langTag("NUMBER_OF_FRAMES", d.Language),
		s.tag("NUMBER_OF_FRAMES"),
	)

	if d.Type == media.Audio {
		if n, ok := parsePositive(string(s.Channels)); ok {
			channels := int(n)
			d.Channels = &channels
		}
	}
	return d
}

func (s ffprobeStream) tag(key string) string {
	return strings.TrimSpace(string(s.Tags[key]))
}

// langTag reads tags written per language by mkvmerge, e.g. "BPS-eng".
func (s ffprobeStream) langTag(key, lang string) string {
	if lang == "" {
		return ""
	}
	return s.tag(key + "-" + lang)
}

func (s ffprobeStream) flag(key string) bool {
	v, ok := parsePositive(string(s.Disposition[key]))
	return ok && v > 0
}

// firstPositive returns the first candidate that parses as a positive integer.
func firstPositive(candidates ...string) *int64 {
	for _, c := range candidates {
		if v, ok := parsePositive(c); ok {
			return &v
		}
	}
	return nil
}

func parsePositive(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != f || f < 1 || f > 1<<62 {
			return 0, false
		}
		v = int64(f)
	}
	if v <= 0 {
		return 0, false
	}
	return v, true
}

// looseString decodes a JSON string or number. Any other JSON type,
// including null, decodes to the empty string instead of failing the
// whole document.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case string:
		*s = looseString(x)
	case float64:
		*s = looseString(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		if x {
			*s = "1"
		} else {
			*s = "0"
		}
	default:
		*s = ""
	}
	return nil
}
