package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"clipforge/internal/archive"
	"clipforge/internal/filtergraph"
	"clipforge/internal/logging"
	"clipforge/internal/presets"
	"clipforge/internal/services"
	"clipforge/internal/transform"
)

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 4 << 30

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	id, err := s.opts.Uploads.Save(r.Context(), file, header.Filename)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.logger.Info("upload stored",
		logging.String("id", id),
		logging.String("original", header.Filename))
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()

	source, err := s.opts.Uploads.Resolve(query.Get("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	opts, err := parseOptionsQuery(query)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	start := parseFloatDefault(query.Get("start"), 0)
	duration := parseFloatDefault(query.Get("duration"), s.opts.PreviewDuration)
	if start < 0 || duration <= 0 {
		s.writeError(w, http.StatusBadRequest, "start must be >= 0 and duration > 0")
		return
	}

	spec := transform.Spec{
		Mode:        transform.ModePreview,
		Source:      source,
		Graph:       filtergraph.Build(opts),
		StartOffset: start,
		Duration:    duration,
	}
	s.attachBgm(&spec, opts)

	w.Header().Set("Content-Type", "video/mp4")
	counted := &countingWriter{w: w}
	if err := s.opts.Runner.Stream(r.Context(), spec, counted); err != nil {
		if counted.n == 0 {
			s.writeServiceError(w, err)
			return
		}
		// Bytes already left; the truncated stream is the failure signal.
		s.logger.Warn("preview stream aborted mid-flight", logging.Error(err))
	}
}

type exportRequest struct {
	ID      string              `json:"id"`
	Options filtergraph.Options `json:"options"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	source, err := s.opts.Uploads.Resolve(req.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	jobID, err := s.opts.Tracker.Create(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// The job outlives the request; it runs on its own goroutine with a
	// background context and reports through the tracker.
	go s.runExport(jobID, source, req.Options)

	s.writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

func (s *Server) runExport(jobID, source string, opts filtergraph.Options) {
	ctx := context.Background()

	spec := transform.Spec{
		Mode:       transform.ModeExport,
		Source:     source,
		Graph:      filtergraph.Build(opts),
		OutputPath: s.opts.Outputs.NewPath(".mp4"),
	}
	s.attachBgm(&spec, opts)
	if s.opts.Inspect != nil {
		if duration, err := s.opts.Inspect(ctx, source); err == nil {
			spec.SourceDuration = duration
		}
	}

	s.opts.Tracker.Start(ctx, jobID)
	for event := range s.opts.Runner.Run(ctx, spec) {
		switch event.Kind {
		case transform.EventProgress:
			s.opts.Tracker.Progress(ctx, jobID, event.Percent)
		case transform.EventCompleted:
			s.opts.Tracker.Complete(ctx, jobID, event.OutputPath)
		case transform.EventFailed:
			s.opts.Tracker.Fail(ctx, jobID, event.Err.Error())
		}
	}
}

type splitRequest struct {
	ID     string          `json:"id"`
	Ranges []archive.Range `json:"ranges"`
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	source, err := s.opts.Uploads.Resolve(req.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	zipPath := s.opts.Outputs.NewPath(".zip")
	if err := s.opts.Pipeline.Run(r.Context(), source, req.Ranges, zipPath); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"downloadUrl": "/api/download/" + filepath.Base(zipPath),
	})
}

func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	list, err := s.opts.Tracker.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	snapshots := make([]any, 0, len(list))
	for _, job := range list {
		snapshots = append(snapshots, job.Snapshot())
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": snapshots})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	snap, err := s.opts.Tracker.Snapshot(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/download/")
	path, err := s.opts.Outputs.Resolve(name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.opts.Presets.List()
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if list == nil {
			list = []presets.Preset{}
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"presets": list})
	case http.MethodPost:
		var preset presets.Preset
		if err := json.NewDecoder(r.Body).Decode(&preset); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := s.opts.Presets.Add(preset); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, preset)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.opts.Status == nil {
		s.writeJSON(w, http.StatusOK, map[string]bool{"running": true})
		return
	}
	s.writeJSON(w, http.StatusOK, s.opts.Status(r.Context()))
}

// attachBgm resolves the optional background track. An empty library quietly
// degrades to single-input encoding.
func (s *Server) attachBgm(spec *transform.Spec, opts filtergraph.Options) {
	if !opts.AddBgm || s.opts.Picker == nil {
		return
	}
	track, ok := s.opts.Picker.Pick()
	if !ok {
		s.logger.Debug("background library empty, mixing skipped")
		return
	}
	spec.BgmPath = track
	spec.BgmVolume = opts.EffectiveBgmVolume()
}

// parseOptionsQuery reads flat preview query parameters into an option set.
func parseOptionsQuery(query url.Values) (filtergraph.Options, error) {
	var opts filtergraph.Options
	var err error

	floats := []struct {
		key    string
		target *float64
	}{
		{"brightness", &opts.Brightness},
		{"contrast", &opts.Contrast},
		{"saturation", &opts.Saturation},
		{"gamma", &opts.Gamma},
		{"pitchShift", &opts.PitchShift},
		{"tempo", &opts.Tempo},
		{"bgmVolume", &opts.BgmVolume},
	}
	for _, field := range floats {
		value := strings.TrimSpace(query.Get(field.key))
		if value == "" {
			continue
		}
		*field.target, err = strconv.ParseFloat(value, 64)
		if err != nil {
			return filtergraph.Options{}, services.Wrap(services.ErrValidation, "server", "parse options",
				"parameter "+field.key+" is not a number", nil)
		}
	}

	bools := []struct {
		key    string
		target *bool
	}{
		{"colorGrade", &opts.ColorGrade},
		{"noiseReduction", &opts.NoiseReduction},
		{"cropResize", &opts.CropResize},
		{"copyrightAvoid", &opts.CopyrightAvoid},
		{"addBgm", &opts.AddBgm},
	}
	for _, field := range bools {
		value := strings.TrimSpace(query.Get(field.key))
		if value == "" {
			continue
		}
		*field.target = value == "1" || strings.EqualFold(value, "true")
	}

	return opts, nil
}

func parseFloatDefault(value string, fallback float64) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if parsed, err := strconv.ParseFloat(value, 64); err == nil {
		return parsed
	}
	return fallback
}

// countingWriter tracks whether any preview bytes reached the client.
type countingWriter struct {
	w http.ResponseWriter
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
