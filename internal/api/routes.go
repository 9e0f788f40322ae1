package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/thumbnail"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())

		r.Get("/media/file", mediaFileHandler(cfg))
		r.Head("/media/file", mediaFileHandler(cfg))
		r.Get("/thumbnails/{ms}", thumbnailFileHandler(cfg))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/timeline", snapshotHandler(cfg))
		r.Post("/media", openMediaHandler(cfg))
		r.Get("/media/recent", recentMediaHandler(cfg))

		r.Post("/timeline/metadata", metadataHandler(cfg))
		r.Post("/timeline/container", containerHandler(cfg))
		r.Post("/timeline/wheel", wheelHandler(cfg))
		r.Post("/timeline/zoom-center", zoomCenterHandler(cfg))
		r.Post("/timeline/range", rangeHandler(cfg))
		r.Post("/timeline/pan", panHandler(cfg))
		r.Post("/timeline/fit", fitHandler(cfg))
		r.Put("/timeline/operation", operationHandler(cfg))

		r.Post("/markers/drag", beginDragHandler(cfg))
		r.Post("/markers/drag/move", dragMoveHandler(cfg))
		r.Post("/markers/drag/end", dragEndHandler(cfg))
		r.Post("/markers/drag/cancel", dragCancelHandler(cfg))
		r.Put("/selection", selectionHandler(cfg))

		r.Post("/playback/seek", seekHandler(cfg))
		r.Post("/playback/time", timeUpdateHandler(cfg))

		r.Get("/thumbnails", thumbnailsHandler(cfg))

		r.Post("/export/edl", exportEDLHandler(cfg))
		r.Post("/export/operation", exportOperationHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := cfg.Version
		if version == "" {
			version = "0.1.0"
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:     "ok",
			Version:    version,
			UptimeS:    int64(time.Since(cfg.StartTime).Seconds()),
			InstanceID: cfg.InstanceID,
			FFmpeg:     cfg.FFmpegAvailable,
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func writeSnapshot(w http.ResponseWriter, cfg ServerConfig) {
	WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
}

func snapshotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSnapshot(w, cfg)
	}
}

func openMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenMediaRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		m, err := cfg.Session.LoadMedia(r.Context(), req.Path)
		if err != nil {
			switch {
			case errors.Is(err, media.ErrUnsupportedFormat), errors.Is(err, media.ErrNotFile), errors.Is(err, fs.ErrNotExist):
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			default:
				cfg.Logger.Error("open media failed", "error", err, "path", req.Path)
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			}
			return
		}

		WriteJSON(w, http.StatusOK, MediaToResponse(m))
	}
}

func recentMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		items, err := cfg.Media.Recent(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list media", "INTERNAL_ERROR")
			return
		}

		resp := RecentMediaResponse{Media: make([]MediaResponse, len(items))}
		for i, m := range items {
			resp.Media[i] = MediaToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func metadataHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MetadataRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := cfg.Session.SetMetadata(req.Duration, req.FrameRate); err != nil {
			writeSessionError(w, err)
			return
		}
		writeSnapshot(w, cfg)
	}
}

func containerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContainerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cfg.Session.SetContainerWidth(req.WidthPx)
		writeSnapshot(w, cfg)
	}
}

func wheelHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WheelRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cfg.Session.Wheel(req.PointerX, req.DeltaY, req.ContainerWidth)
		writeSnapshot(w, cfg)
	}
}

func zoomCenterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ZoomCenterRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cfg.Session.ZoomCenter(req.Percent)
		writeSnapshot(w, cfg)
	}
}

func rangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RangeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cfg.Session.SetVisibleRange(req.Start, req.Duration)
		writeSnapshot(w, cfg)
	}
}

func panHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PanRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Step != 0 {
			cfg.Session.PanStep(req.Step)
		} else {
			cfg.Session.PanPixels(req.DeltaPx, req.WidthPx)
		}
		writeSnapshot(w, cfg)
	}
}

func fitHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.Fit()
		writeSnapshot(w, cfg)
	}
}

func operationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OperationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		op, err := timeline.ParseOperation(req.Operation)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		cfg.Session.SetOperation(op)
		writeSnapshot(w, cfg)
	}
}

func beginDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BeginDragRequest
		if !decodeBody(w, r, &req) {
			return
		}
		marker, ok := timeline.ParseMarker(req.Marker)
		if !ok {
			WriteError(w, http.StatusBadRequest, "marker must be start or end", "BAD_REQUEST")
			return
		}
		strip := editor.Strip(req.Strip)
		switch strip {
		case "":
			strip = editor.StripScrubber
		case editor.StripScrubber, editor.StripThumbnails:
		default:
			WriteError(w, http.StatusBadRequest, "strip must be scrubber or thumbnails", "BAD_REQUEST")
			return
		}

		if err := cfg.Session.BeginDrag(marker, strip, req.WidthPx); err != nil {
			writeSessionError(w, err)
			return
		}
		writeSnapshot(w, cfg)
	}
}

func dragMoveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DragMoveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if _, err := cfg.Session.DragMove(req.PointerX); err != nil {
			writeSessionError(w, err)
			return
		}
		writeSnapshot(w, cfg)
	}
}

func dragEndHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.DragEnd(); err != nil {
			writeSessionError(w, err)
			return
		}
		writeSnapshot(w, cfg)
	}
}

func dragCancelHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.DragCancel(); err != nil {
			writeSessionError(w, err)
			return
		}
		writeSnapshot(w, cfg)
	}
}

func selectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if _, err := cfg.Session.SetSelection(req.Start, req.End); err != nil {
			writeSessionError(w, err)
			return
		}
		writeSnapshot(w, cfg)
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cfg.Session.Seek(req.Time)
		writeSnapshot(w, cfg)
	}
}

func timeUpdateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TimeUpdateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cfg.Session.TimeUpdate(req.Time, req.Playing)
		WriteJSON(w, http.StatusOK, cfg.Session.Cursor().State())
	}
}

func thumbnailsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Session.Snapshot()
		resp := ThumbnailsResponse{
			Ready:      snap.ThumbnailsReady,
			Thumbnails: make([]ThumbnailResponse, len(snap.Thumbnails)),
		}
		for i, th := range snap.Thumbnails {
			resp.Thumbnails[i] = ThumbnailResponse{Thumb: th}
			if th.Ready {
				resp.Thumbnails[i].URL = "/thumbnails/" + strconv.FormatInt(th.Key, 10)
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// mediaFileHandler streams the loaded media to the preview element.
func mediaFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := cfg.Session.Media()
		if m == nil {
			writeSessionError(w, editor.ErrNoMedia)
			return
		}
		if err := cfg.PlaybackServer.ServeFile(w, r, m.Path); err != nil {
			cfg.Logger.Error("playback error", "error", err, "media_id", m.ID)
		}
	}
}

func thumbnailFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ms, err := strconv.ParseInt(chi.URLParam(r, "ms"), 10, 64)
		if err != nil || ms < 0 {
			WriteError(w, http.StatusBadRequest, "invalid thumbnail key", "BAD_REQUEST")
			return
		}
		if cfg.Thumbnails == nil {
			WriteError(w, http.StatusNotFound, "thumbnail not available", "NOT_FOUND")
			return
		}

		ref, err := cfg.Thumbnails.Lookup(ms)
		if err != nil {
			if errors.Is(err, thumbnail.ErrNotReady) || errors.Is(err, thumbnail.ErrNoSource) {
				WriteError(w, http.StatusNotFound, "thumbnail not available", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		if err := cfg.PlaybackServer.ServeThumbnail(w, r, ref.Path); err != nil {
			cfg.Logger.Error("thumbnail serve error", "error", err, "key", ms)
		}
	}
}
