package api

import (
	"time"

	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/media"
)

type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	UptimeS    int64  `json:"uptime_s"`
	InstanceID string `json:"instance_id"`
	FFmpeg     bool   `json:"ffmpeg"`
}

type OpenMediaRequest struct {
	Path string `json:"path"`
}

type MediaResponse struct {
	ID          string  `json:"id"`
	Path        string  `json:"path"`
	Filename    string  `json:"filename"`
	Size        int64   `json:"size"`
	Fingerprint string  `json:"fingerprint"`
	Duration    float64 `json:"duration"`
	FrameRate   float64 `json:"frame_rate"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	OpenedAt    string  `json:"opened_at"`
}

type RecentMediaResponse struct {
	Media []MediaResponse `json:"media"`
}

type MetadataRequest struct {
	Duration  float64 `json:"duration"`
	FrameRate float64 `json:"frameRate"`
}

type ContainerRequest struct {
	WidthPx float64 `json:"widthPx"`
}

type WheelRequest struct {
	PointerX       float64 `json:"pointerX"`
	DeltaY         float64 `json:"deltaY"`
	ContainerWidth float64 `json:"containerWidth"`
}

type ZoomCenterRequest struct {
	Percent float64 `json:"percent"`
}

type RangeRequest struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// PanRequest pans by keyboard step when Step is non-zero, otherwise by a
// pointer drag of DeltaPx over WidthPx.
type PanRequest struct {
	Step    int     `json:"step,omitempty"`
	DeltaPx float64 `json:"deltaPx,omitempty"`
	WidthPx float64 `json:"widthPx,omitempty"`
}

type OperationRequest struct {
	Operation string `json:"operation"`
}

type BeginDragRequest struct {
	Marker  string  `json:"marker"`
	Strip   string  `json:"strip"`
	WidthPx float64 `json:"widthPx"`
}

type DragMoveRequest struct {
	PointerX float64 `json:"pointerX"`
}

type SelectionRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type TimeUpdateRequest struct {
	Time    float64 `json:"time"`
	Playing bool    `json:"playing"`
}

type ThumbnailResponse struct {
	editor.Thumb
	URL string `json:"url,omitempty"`
}

type ThumbnailsResponse struct {
	Ready      bool                `json:"ready"`
	Thumbnails []ThumbnailResponse `json:"thumbnails"`
}

// OperationExportRequest names the job output either as an absolute file
// path or as a directory, in which case the file name is derived from Name
// or the media title and selection.
type OperationExportRequest struct {
	Output    string `json:"output,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
	Name      string `json:"name,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func MediaToResponse(m *media.Media) MediaResponse {
	return MediaResponse{
		ID:          m.ID,
		Path:        m.Path,
		Filename:    m.Filename,
		Size:        m.Size,
		Fingerprint: m.Fingerprint,
		Duration:    m.Duration,
		FrameRate:   m.FrameRate,
		Width:       m.Width,
		Height:      m.Height,
		OpenedAt:    m.OpenedAt.Format(time.RFC3339),
	}
}
