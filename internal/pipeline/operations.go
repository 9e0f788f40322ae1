package pipeline

import (
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// GIF output defaults.
const (
	DefaultGIFFrameRate = 12
	DefaultGIFWidth     = 480
)

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// TrimArgs cuts [start, start+duration) without re-encoding.
func TrimArgs(input, output string, start, duration float64) []string {
	return ffmpeg.Input(input, ffmpeg.KwArgs{"ss": seconds(start)}).
		Output(output, ffmpeg.KwArgs{
			"t":                 seconds(duration),
			"c":                 "copy",
			"avoid_negative_ts": "make_zero",
			"map":               "0",
		}).
		OverWriteOutput().
		GetArgs()
}

// GIFArgs renders [start, start+duration) as an animated GIF with a
// generated palette.
func GIFArgs(input, output string, start, duration float64, fps, width int) []string {
	if fps <= 0 {
		fps = DefaultGIFFrameRate
	}
	if width <= 0 {
		width = DefaultGIFWidth
	}
	filter := fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos,split[a][b];[a]palettegen[p];[b][p]paletteuse", fps, width)
	return ffmpeg.Input(input, ffmpeg.KwArgs{"ss": seconds(start), "t": seconds(duration)}).
		Output(output, ffmpeg.KwArgs{
			"filter_complex": filter,
			"loop":           0,
		}).
		OverWriteOutput().
		GetArgs()
}
