package timeline

import (
	"fmt"
	"math"
	"strings"
)

// Operation is the editing screen the timeline backs.
type Operation string

const (
	OperationTrim Operation = "trim"
	OperationGIF  Operation = "gif"
)

// DefaultGIFWindowSec is the initial selection length on the GIF screen.
const DefaultGIFWindowSec = 5.0

// ParseOperation accepts "trim" or "gif" in any case.
func ParseOperation(s string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(s))) {
	case OperationTrim:
		return OperationTrim, nil
	case OperationGIF:
		return OperationGIF, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// SelectionDefaults produces the initial selection for a freshly loaded
// media file of the given duration.
type SelectionDefaults func(durationSec float64) Selection

// DefaultSelection returns the defaults for op. windowSec only applies to
// OperationGIF; non-positive values use DefaultGIFWindowSec.
func DefaultSelection(op Operation, windowSec float64) SelectionDefaults {
	if op != OperationGIF {
		return func(d float64) Selection {
			return Selection{Start: 0, End: math.Max(d, 0)}
		}
	}
	if windowSec <= 0 {
		windowSec = DefaultGIFWindowSec
	}
	return func(d float64) Selection {
		return Selection{Start: 0, End: math.Min(math.Max(d, 0), windowSec)}
	}
}
