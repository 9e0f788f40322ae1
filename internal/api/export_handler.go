package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.Format == "" {
			req.Format = export.FormatEDL
		}
		if strings.ToLower(req.Format) != export.FormatEDL {
			WriteError(w, http.StatusBadRequest, "format must be edl", "BAD_REQUEST")
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		sel, m, fps, err := cfg.Session.Selection()
		if err != nil {
			writeSessionError(w, err)
			return
		}

		clip := export.SelectionClip(m, sel, fps, export.SanitizeName(req.Name, 160))
		outputPath, err := export.WriteEDL(req.OutputDir, clip.Name, []export.Clip{clip}, fps)
		if errors.Is(err, export.ErrInvalidOutput) {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if err != nil {
			cfg.Logger.Error("edl export failed", "error", err, "media_id", m.ID)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		cfg.Logger.Info("selection exported", "media_id", m.ID, "path", outputPath, "start", sel.Start, "end", sel.End)
		WriteJSON(w, http.StatusOK, export.Response{
			Status:     "ok",
			Format:     export.FormatEDL,
			OutputPath: outputPath,
			Start:      sel.Start,
			End:        sel.End,
			Timecode:   timeline.FormatTimecode(sel.Start, fps) + "-" + timeline.FormatTimecode(sel.End, fps),
		})
	}
}

// exportOperationHandler describes the selection as a trim or GIF job for
// the media engine. Nothing is encoded here.
func exportOperationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OperationExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Output != "" && !filepath.IsAbs(req.Output) {
			WriteError(w, http.StatusBadRequest, "output must be an absolute path", "BAD_REQUEST")
			return
		}
		if req.Output == "" && req.OutputDir == "" {
			WriteError(w, http.StatusBadRequest, "output or output_dir is required", "BAD_REQUEST")
			return
		}

		sel, m, fps, err := cfg.Session.Selection()
		if err != nil {
			writeSessionError(w, err)
			return
		}

		op := cfg.Session.Operation()
		output := filepath.Clean(req.Output)
		if req.Output == "" {
			stem := export.ClipStem(req.Name, m, op, sel, fps)
			output, err = export.OutputPath(req.OutputDir, stem, export.Extension(op, m.Path))
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
		}
		params, err := export.OperationArgs(op, export.SelectionClip(m, sel, fps, ""), output, fps)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, params)
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrNoMedia):
		WriteError(w, http.StatusConflict, err.Error(), "NO_MEDIA")
	case errors.Is(err, timeline.ErrDragActive):
		WriteError(w, http.StatusConflict, err.Error(), "DRAG_ACTIVE")
	case errors.Is(err, timeline.ErrNoDrag):
		WriteError(w, http.StatusConflict, err.Error(), "NO_DRAG")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
