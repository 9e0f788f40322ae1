package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// SelectionClip turns a frame-quantized selection into a clip. A
// single-frame selection becomes a clip one frame long.
func SelectionClip(m *media.Media, sel timeline.Selection, fps float64, name string) Clip {
	out := sel.End
	if sel.SingleFrame() {
		out = sel.Start + 1/timeline.EffectiveFrameRate(fps)
	}
	if name == "" {
		name = strings.TrimSuffix(m.Filename, filepath.Ext(m.Filename))
	}
	return Clip{Name: name, MediaPath: m.Path, In: sel.Start, Out: out}
}

func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	fps := timeline.EffectiveFrameRate(frameRate)
	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	base := int64(math.Round(fps))
	var recordFrames int64
	for i, clip := range clips {
		in := timeline.TimeToFrame(clip.In, fps)
		out := timeline.TimeToFrame(clip.Out, fps)
		length := out - in

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				framesToTimecode(in, base), framesToTimecode(out, base),
				framesToTimecode(recordFrames, base), framesToTimecode(recordFrames+length, base)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clip.Name),
			fmt.Sprintf("* MEDIA PATH:  %s", clip.MediaPath),
		)
		recordFrames += length
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// framesToTimecode labels a frame count at the nominal integer rate, as
// non-drop-frame EDLs do.
func framesToTimecode(frames, base int64) string {
	ff := frames % base
	totalSeconds := frames / base
	return fmt.Sprintf("%02d:%02d:%02d:%02d", totalSeconds/3600, (totalSeconds/60)%60, totalSeconds%60, ff)
}

// WriteEDL writes clips as <name>.edl inside dir, numbering the file when
// that name is taken.
func WriteEDL(dir, name string, clips []Clip, frameRate float64) (string, error) {
	base := SanitizeName(name, MaxStemRunes)
	if base == "" {
		base = "selection"
	}
	path, err := OutputPath(dir, base, ".edl")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(GenerateEDL(clips, base, frameRate)), 0644); err != nil {
		return "", fmt.Errorf("failed to write EDL: %w", err)
	}
	return path, nil
}
