package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/smazurov/ffjob/internal/media"
)

const mkvFixture = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_long_name": "H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10",
      "codec_type": "video",
      "disposition": {"default": 1, "forced": 0},
      "tags": {"language": "eng", "BPS-eng": "4500000", "NUMBER_OF_FRAMES-eng": "34560"}
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "channels": 6,
      "bit_rate": "384000",
      "disposition": {"default": 1, "forced": 0},
      "tags": {"language": "jpn", "title": "Surround"}
    },
    {
      "index": 2,
      "codec_name": "aac",
      "codec_type": "audio",
      "channels": 2,
      "disposition": {"default": 0, "forced": 0},
      "tags": {"language": "eng", "BPS": "128000"}
    },
    {
      "index": 3,
      "codec_name": "ass",
      "codec_type": "subtitle",
      "disposition": {"default": 0, "forced": 1},
      "tags": {"language": "eng", "title": "Signs"}
    },
    {
      "index": 4,
      "codec_name": "ttf",
      "codec_type": "attachment",
      "tags": {"filename": "font.ttf"}
    },
    {
      "index": 5,
      "codec_type": "unknown"
    }
  ]
}`

func TestParseCatalogDescriptors(t *testing.T) {
	c, err := ParseCatalog("movie.mkv", []byte(mkvFixture), false)
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	if c.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", c.Len())
	}

	streams := c.Streams()
	video := streams[0]
	if video.Type != media.Video || video.Codec != "h264" {
		t.Errorf("stream 0 = %+v", video)
	}
	if video.Bitrate == nil || *video.Bitrate != 4500000 {
		t.Errorf("video bitrate from BPS-eng tag = %v", video.Bitrate)
	}
	if video.FrameCount == nil || *video.FrameCount != 34560 {
		t.Errorf("video frames from NUMBER_OF_FRAMES-eng tag = %v", video.FrameCount)
	}
	if !video.Default || video.Forced {
		t.Errorf("video disposition default=%v forced=%v", video.Default, video.Forced)
	}

	surround := streams[1]
	if surround.Channels == nil || *surround.Channels != 6 {
		t.Errorf("channels = %v, want 6", surround.Channels)
	}
	if surround.Bitrate == nil || *surround.Bitrate != 384000 {
		t.Errorf("bit_rate = %v", surround.Bitrate)
	}
	if surround.Title != "Surround" || surround.Language != "jpn" {
		t.Errorf("tags = %q/%q", surround.Title, surround.Language)
	}
	if surround.FrameCount != nil {
		t.Errorf("frame count should be absent, got %d", *surround.FrameCount)
	}

	if streams[2].Bitrate == nil || *streams[2].Bitrate != 128000 {
		t.Errorf("bitrate from BPS tag = %v", streams[2].Bitrate)
	}

	subs := streams[3]
	if !subs.Forced || subs.Default {
		t.Errorf("subtitle disposition default=%v forced=%v, want forced only", subs.Default, subs.Forced)
	}
	if subs.Channels != nil {
		t.Error("channels should only be set for audio")
	}

	if streams[5].Type != media.Other {
		t.Errorf("unknown codec_type mapped to %q", streams[5].Type)
	}
}

func TestFilterRenumbers(t *testing.T) {
	c, err := ParseCatalog("movie.mkv", []byte(mkvFixture), false)
	if err != nil {
		t.Fatal(err)
	}

	audio := c.Filter(media.Audio)
	if len(audio) != 2 {
		t.Fatalf("Filter(audio) len = %d, want 2", len(audio))
	}
	for i, s := range audio {
		if s.Index != i {
			t.Errorf("audio[%d].Index = %d", i, s.Index)
		}
	}
	if audio[1].Language != "eng" {
		t.Errorf("audio order not preserved: %+v", audio[1])
	}

	all := c.Filter(media.All)
	if len(all) != 5 {
		t.Errorf("Filter(all) len = %d, want 5 (other excluded)", len(all))
	}

	if got := c.Filter(media.Data); len(got) != 0 {
		t.Errorf("Filter(data) = %v, want empty", got)
	}

	// Filtering must not disturb raw positions.
	if raw := c.Streams(); raw[2].Index != 2 {
		t.Errorf("raw index changed after Filter: %d", raw[2].Index)
	}
	again := c.Filter(media.Audio)
	if again[0].Index != 0 || again[1].Index != 1 {
		t.Error("second Filter call not renumbered from zero")
	}
}

func TestFrameCountPriority(t *testing.T) {
	tests := []struct {
		name        string
		json        string
		countFrames bool
		want        int64
		wantNil     bool
	}{
		{
			name:        "counted frames win in counting mode",
			json:        `{"streams":[{"codec_type":"video","nb_read_frames":"100","nb_frames":"90","tags":{"NUMBER_OF_FRAMES":"80"}}]}`,
			countFrames: true,
			want:        100,
		},
		{
			name: "counted frames ignored outside counting mode",
			json: `{"streams":[{"codec_type":"video","nb_read_frames":"100","nb_frames":"90"}]}`,
			want: 90,
		},
		{
			name: "language tag before plain tag",
			json: `{"streams":[{"codec_type":"video","tags":{"language":"ger","NUMBER_OF_FRAMES-ger":"70","NUMBER_OF_FRAMES":"60"}}]}`,
			want: 70,
		},
		{
			name: "plain tag",
			json: `{"streams":[{"codec_type":"video","tags":{"NUMBER_OF_FRAMES":"60"}}]}`,
			want: 60,
		},
		{
			name: "malformed nb_frames falls through",
			json: `{"streams":[{"codec_type":"video","nb_frames":"N/A","tags":{"NUMBER_OF_FRAMES":"60"}}]}`,
			want: 60,
		},
		{
			name:    "nothing usable",
			json:    `{"streams":[{"codec_type":"video","nb_frames":"0"}]}`,
			wantNil: true,
		},
		{
			name: "numeric json value",
			json: `{"streams":[{"codec_type":"video","nb_frames":1234}]}`,
			want: 1234,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCatalog("f", []byte(tt.json), tt.countFrames)
			if err != nil {
				t.Fatalf("ParseCatalog() error = %v", err)
			}
			got := c.Streams()[0].FrameCount
			if tt.wantNil {
				if got != nil {
					t.Errorf("FrameCount = %d, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("FrameCount = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestParseCatalogMalformedFieldsDegrade(t *testing.T) {
	data := `{"streams":[{"codec_type":"audio","channels":"six","bit_rate":{"x":1},"disposition":{"forced":null},"tags":{"language":5}}]}`
	c, err := ParseCatalog("f", []byte(data), false)
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	s := c.Streams()[0]
	if s.Channels != nil || s.Bitrate != nil || s.Forced {
		t.Errorf("malformed fields should be absent: %+v", s)
	}
	if s.Language != "5" {
		t.Errorf("numeric language tag = %q", s.Language)
	}
}

func TestParseCatalogErrors(t *testing.T) {
	tests := map[string]string{
		"not json":       `streams: []`,
		"missing list":   `{"format": {}}`,
		"streams string": `{"streams": "none"}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog("bad.mkv", []byte(data), false)
			var perr *ProbeError
			if !errors.As(err, &perr) {
				t.Fatalf("error = %v, want *ProbeError", err)
			}
			if perr.Path != "bad.mkv" {
				t.Errorf("Path = %q", perr.Path)
			}
		})
	}

	c, err := ParseCatalog("empty.mkv", []byte(`{"streams": []}`), false)
	if err != nil {
		t.Fatalf("empty streams list should parse: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d", c.Len())
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeScript creates an executable shell script standing in for ffprobe.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProberCatalog(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := writeScript(t, `echo "$@" > `+argsFile+`
cat <<'EOF'
{"streams":[{"codec_type":"video","codec_name":"hevc","nb_read_frames":"42"}]}
EOF`)

	p := NewProber(script, testLogger())
	c, err := p.Catalog(context.Background(), "in.mkv", true)
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if got := c.Filter(media.Video)[0].FrameCount; got == nil || *got != 42 {
		t.Errorf("FrameCount = %v, want 42", got)
	}
	if c.Path() != "in.mkv" {
		t.Errorf("Path() = %q", c.Path())
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	want := "-v quiet -show_streams -print_format json -count_frames in.mkv\n"
	if string(args) != want {
		t.Errorf("ffprobe args = %q, want %q", args, want)
	}
}

func TestProberCatalogFailures(t *testing.T) {
	t.Run("non-zero exit", func(t *testing.T) {
		script := writeScript(t, `echo "in.mkv: No such file" >&2; exit 1`)
		_, err := NewProber(script, testLogger()).Catalog(context.Background(), "in.mkv", false)
		var perr *ProbeError
		if !errors.As(err, &perr) {
			t.Fatalf("error = %v, want *ProbeError", err)
		}
		if perr.ExitCode != 1 {
			t.Errorf("ExitCode = %d, want 1", perr.ExitCode)
		}
		if perr.Stderr != "in.mkv: No such file" {
			t.Errorf("Stderr = %q", perr.Stderr)
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope")
		_, err := NewProber(missing, testLogger()).Catalog(context.Background(), "in.mkv", false)
		var perr *ProbeError
		if !errors.As(err, &perr) {
			t.Fatalf("error = %v, want *ProbeError", err)
		}
	})

	t.Run("garbage output", func(t *testing.T) {
		script := writeScript(t, `echo "not json"`)
		_, err := NewProber(script, testLogger()).Catalog(context.Background(), "in.mkv", false)
		var perr *ProbeError
		if !errors.As(err, &perr) {
			t.Fatalf("error = %v, want *ProbeError", err)
		}
	})
}
