package export

const (
	FormatEDL = "edl"
)

// Request asks for the current selection to be exported.
type Request struct {
	Name      string `json:"name"`
	Format    string `json:"format"`
	OutputDir string `json:"output_dir"`
}

// Clip is one source range in seconds. Out is exclusive.
type Clip struct {
	Name      string
	MediaPath string
	In        float64
	Out       float64
}

type Response struct {
	Status     string  `json:"status"`
	Format     string  `json:"format"`
	OutputPath string  `json:"output_path"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Timecode   string  `json:"timecode"`
}

// OperationParams describes the selection as a job for the media engine.
type OperationParams struct {
	Operation   string   `json:"operation"`
	Input       string   `json:"input"`
	Output      string   `json:"output"`
	StartSec    float64  `json:"start_sec"`
	DurationSec float64  `json:"duration_sec"`
	StartFrame  int64    `json:"start_frame"`
	EndFrame    int64    `json:"end_frame"`
	FrameRate   float64  `json:"frame_rate"`
	Args        []string `json:"args"`
}
