package export

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func TestGenerateEDL_SingleClip(t *testing.T) {
	clips := []Clip{{
		Name:      "Intro",
		MediaPath: "/media/intro.mp4",
		In:        0,
		Out:       2,
	}}

	edl := GenerateEDL(clips, "Project One", 30.0)

	if !strings.Contains(edl, "TITLE: Project One") {
		t.Fatalf("missing title in EDL: %q", edl)
	}
	if !strings.Contains(edl, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing non-drop-frame FCM: %q", edl)
	}
	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", edl)
	}
	if !strings.Contains(edl, "* FROM CLIP NAME:  Intro") {
		t.Fatalf("missing clip name comment: %q", edl)
	}
	if !strings.Contains(edl, "* MEDIA PATH:  /media/intro.mp4") {
		t.Fatalf("missing media path comment: %q", edl)
	}
}

func TestGenerateEDL_MultipleClips(t *testing.T) {
	clips := []Clip{
		{Name: "Clip A", MediaPath: "/a.mp4", In: 0, Out: 1},
		{Name: "Clip B", MediaPath: "/b.mp4", In: 1, Out: 2.5},
	}

	edl := GenerateEDL(clips, "Multi", 30.0)

	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:01:00 00:00:00:00 00:00:01:00") {
		t.Fatalf("first event line mismatch: %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:01:00 00:00:02:15 00:00:01:00 00:00:02:15") {
		t.Fatalf("second event line mismatch or bad record offset: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	clips := []Clip{{Name: "Clip", MediaPath: "/x.mp4", In: 0, Out: 1}}
	edl := GenerateEDL(clips, "Drop", 29.97)

	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestFramesToTimecode(t *testing.T) {
	tests := []struct {
		name   string
		frames int64
		base   int64
		want   string
	}{
		{name: "zero", frames: 0, base: 30, want: "00:00:00:00"},
		{name: "one second", frames: 30, base: 30, want: "00:00:01:00"},
		{name: "half second", frames: 15, base: 30, want: "00:00:00:15"},
		{name: "one minute", frames: 1800, base: 30, want: "00:01:00:00"},
		{name: "one hour at 25", frames: 90000, base: 25, want: "01:00:00:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := framesToTimecode(tc.frames, tc.base)
			if got != tc.want {
				t.Fatalf("framesToTimecode(%d, %d) = %q, want %q", tc.frames, tc.base, got, tc.want)
			}
		})
	}
}

func TestSelectionClip(t *testing.T) {
	m := &media.Media{Path: "/clips/beach.mp4", Filename: "beach.mp4"}

	clip := SelectionClip(m, timeline.Selection{Start: 2, End: 4}, 30, "")
	if clip.Name != "beach" || clip.In != 2 || clip.Out != 4 {
		t.Errorf("SelectionClip() = %+v", clip)
	}

	single := SelectionClip(m, timeline.Selection{Start: 3, End: 3}, 25, "still")
	if single.Name != "still" || math.Abs(single.Out-3.04) > 1e-9 {
		t.Errorf("single-frame clip = %+v, want Out 3.04", single)
	}

	edl := GenerateEDL([]Clip{single}, "Still", 25)
	if !strings.Contains(edl, "00:00:03:00 00:00:03:01 00:00:00:00 00:00:00:01") {
		t.Errorf("single-frame event missing: %q", edl)
	}
}

func TestWriteEDL(t *testing.T) {
	dir := t.TempDir()
	clips := []Clip{{Name: "A", MediaPath: "/a.mp4", In: 0, Out: 1}}

	path, err := WriteEDL(dir, "My/Cut", clips, 30)
	if err != nil {
		t.Fatalf("WriteEDL() error = %v", err)
	}
	if path != filepath.Join(dir, "My_Cut.edl") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "TITLE: My_Cut") {
		t.Errorf("EDL = %q", data)
	}

	if _, err := WriteEDL(filepath.Join(dir, "missing"), "x", clips, 30); err == nil {
		t.Error("WriteEDL() into missing dir should fail")
	}
}
