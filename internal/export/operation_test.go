package export

import (
	"strings"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func TestOperationArgs(t *testing.T) {
	clip := Clip{Name: "c", MediaPath: "/in.mp4", In: 1.5, Out: 4}

	tests := []struct {
		op       timeline.Operation
		output   string
		wantArgs []string
	}{
		{timeline.OperationTrim, "/out/c.mp4", []string{"-ss 1.500", "-t 2.500", "-c copy", "/out/c.mp4"}},
		{timeline.OperationGIF, "/out/c.gif", []string{"-ss 1.500", "-t 2.500", "paletteuse", "/out/c.gif"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			p, err := OperationArgs(tt.op, clip, tt.output, 30)
			if err != nil {
				t.Fatalf("OperationArgs() error = %v", err)
			}
			if p.StartFrame != 45 || p.EndFrame != 120 || p.DurationSec != 2.5 {
				t.Errorf("params = %+v", p)
			}
			args := strings.Join(p.Args, " ")
			for _, want := range tt.wantArgs {
				if !strings.Contains(args, want) {
					t.Errorf("args %q missing %q", args, want)
				}
			}
		})
	}
}

func TestOperationArgs_Errors(t *testing.T) {
	if _, err := OperationArgs(timeline.OperationTrim, Clip{In: 2, Out: 2}, "/o.mp4", 30); err == nil {
		t.Error("empty clip should fail")
	}
	if _, err := OperationArgs("blur", Clip{In: 0, Out: 1}, "/o.mp4", 30); err == nil {
		t.Error("unknown operation should fail")
	}
}
