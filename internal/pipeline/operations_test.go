package pipeline

import (
	"strings"
	"testing"
)

func TestTrimArgs(t *testing.T) {
	args := strings.Join(TrimArgs("/in.mp4", "/out/trim.mp4", 12.5, 3.25), " ")
	for _, want := range []string{"-ss 12.500", "-i /in.mp4", "-t 3.250", "-c copy", "/out/trim.mp4"} {
		if !strings.Contains(args, want) {
			t.Errorf("TrimArgs() = %q, missing %q", args, want)
		}
	}
}

func TestGIFArgs(t *testing.T) {
	args := strings.Join(GIFArgs("/in.mp4", "/out/a.gif", 1, 5, 0, 0), " ")
	for _, want := range []string{"-ss 1.000", "-t 5.000", "-i /in.mp4", "fps=12,scale=480:-1", "paletteuse", "/out/a.gif"} {
		if !strings.Contains(args, want) {
			t.Errorf("GIFArgs() = %q, missing %q", args, want)
		}
	}
}
