package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nabahlab/nabah/internal/detect"
	"github.com/nabahlab/nabah/internal/stream"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// AnalyzeVideoHandler runs the offline pipeline over an uploaded video
// and returns where to fetch the annotated result.
func (app *App) AnalyzeVideoHandler(w http.ResponseWriter, r *http.Request) {
	if app.Batch == nil {
		respondError(w, http.StatusServiceUnavailable, "Video analysis unavailable (ffmpeg not installed)")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)
	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "File too large")
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing video file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".mp4" && ext != ".avi" && ext != ".mov" && ext != ".mkv" {
		respondError(w, http.StatusBadRequest, "Unsupported video format")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}
	analysisType := r.FormValue("analysis_type")
	if analysisType == "" {
		analysisType = "ppe"
	}

	path, err := app.Storage.SaveUpload(file, header.Filename)
	if err != nil {
		app.Log.Error("cannot save upload", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}
	defer app.Storage.Remove(path)

	result, err := app.Batch.Analyze(r.Context(), path, title, analysisType)
	if err != nil {
		app.Log.Error("video analysis failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Video analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"video_id":      result.VideoID,
		"analysis_type": result.AnalysisType,
		"frame_count":   result.FrameCount,
		"output_name":   result.OutputName,
		"download_url":  "/download/" + result.OutputName,
	})
}

func (app *App) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, err := app.Storage.ResolveOutput(filename)
	if err != nil {
		respondError(w, http.StatusNotFound, "Artifact not found")
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	http.ServeFile(w, r, path)
}

// VideoFeedHandler serves the live MJPEG stream, starting a camera
// session on demand.
func (app *App) VideoFeedHandler(w http.ResponseWriter, r *http.Request) {
	if !app.Stream.Running() {
		src, err := stream.OpenCamera(app.CameraDevice, app.CameraFPS)
		if err != nil {
			app.Log.Error("cannot open camera", "device", app.CameraDevice, "error", err)
			respondError(w, http.StatusServiceUnavailable, "Camera unavailable")
			return
		}
		set := detect.LoadByType(app.DetectorBaseURL, "both")
		if err := app.Stream.Start(src, set); err != nil {
			app.Log.Error("cannot start live session", "error", err)
			respondError(w, http.StatusServiceUnavailable, "Cannot start live session")
			return
		}
	}

	frames, cancel := app.Stream.Subscribe()
	defer cancel()
	stream.WriteMJPEG(w, r, frames)
}

func (app *App) StopFeedHandler(w http.ResponseWriter, r *http.Request) {
	app.Stream.Stop()
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (app *App) DashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	st, err := app.Stats.Stats(r.Context())
	if err != nil {
		app.Log.Error("cannot build stats", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to build stats")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (app *App) DashboardChartsHandler(w http.ResponseWriter, r *http.Request) {
	charts, err := app.Stats.Charts(r.Context())
	if err != nil {
		app.Log.Error("cannot build charts", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to build charts")
		return
	}
	respondJSON(w, http.StatusOK, charts)
}

// DatabaseHandler returns a recent sample of every table for the data
// browser page.
func (app *App) DatabaseHandler(w http.ResponseWriter, r *http.Request) {
	const sampleSize = 100
	ctx := r.Context()

	out := map[string]any{}

	if persons, err := app.Persons.List(ctx, sampleSize); err == nil {
		out["persons"] = persons
	} else {
		app.Log.Error("cannot list persons", "error", err)
	}
	if alerts, err := app.Alerts.List(ctx, sampleSize); err == nil {
		out["alerts"] = alerts
	} else {
		app.Log.Error("cannot list alerts", "error", err)
	}
	if spills, err := app.Spills.List(ctx, sampleSize); err == nil {
		out["spills"] = spills
	} else {
		app.Log.Error("cannot list spills", "error", err)
	}
	if detections, err := app.Detections.List(ctx, sampleSize); err == nil {
		out["detections"] = detections
	} else {
		app.Log.Error("cannot list detections", "error", err)
	}
	if videos, err := app.Videos.List(ctx, sampleSize); err == nil {
		out["videos"] = videos
	} else {
		app.Log.Error("cannot list videos", "error", err)
	}

	respondJSON(w, http.StatusOK, out)
}

type chatRequest struct {
	Question string `json:"question"`
}

func (app *App) DBChatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		respondError(w, http.StatusBadRequest, "Missing question")
		return
	}

	answer, err := app.Chat.Answer(r.Context(), req.Question)
	if err != nil {
		// The dispatcher still returns localized fallback text.
		app.Log.Error("chat answer degraded", "error", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
