package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pixshift/config"
	"pixshift/job"
	"pixshift/logger"
	"pixshift/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AddFilesRequest adds server-local paths and remote URLs.
type AddFilesRequest struct {
	Paths []string `json:"paths"`
	URLs  []string `json:"urls"`
}

// AddFilesResponse lists what was registered and what was rejected.
type AddFilesResponse struct {
	Added    []models.JobInfo `json:"added"`
	Rejected []rejected       `json:"rejected,omitempty"`
}

type rejected struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// FilesHandler lists (GET), adds (POST) or clears (DELETE) the pending files.
func (h *Handlers) FilesHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Files request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Registry.List())
	case http.MethodPost:
		h.addFiles(w, r)
	case http.MethodDelete:
		h.Registry.Clear()
		logger.Info("Cleared all pending files")
		w.WriteHeader(http.StatusNoContent)
	default:
		logger.Warnf("Invalid method for files endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) addFiles(w http.ResponseWriter, r *http.Request) {
	var jobs []models.ConversionJob
	var resp AddFilesResponse
	reject := func(source string, err error) {
		logger.Warnf("Rejected %s: %v", source, err)
		resp.Rejected = append(resp.Rejected, rejected{Source: source, Error: err.Error()})
	}

	if h.Config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxUploadBytes)
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
			return
		}
		for _, fh := range r.MultipartForm.File["file"] {
			j, err := h.saveUpload(fh.Filename, func() (io.ReadCloser, error) { return fh.Open() })
			if err != nil {
				reject(fh.Filename, err)
				continue
			}
			jobs = append(jobs, j)
		}
	} else {
		var req AddFilesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		for _, p := range req.Paths {
			j, err := job.FromPath(p)
			if err != nil {
				reject(p, err)
				continue
			}
			jobs = append(jobs, j)
		}
		for _, u := range req.URLs {
			j, err := job.FromURL(r.Context(), h.Client, u)
			if err != nil {
				reject(u, err)
				continue
			}
			jobs = append(jobs, j)
		}
	}

	for _, j := range jobs {
		if err := h.Registry.Add(j); err != nil {
			reject(j.Name, err)
			continue
		}
		info, _ := h.Registry.Get(j.ID)
		resp.Added = append(resp.Added, info)
	}

	status := http.StatusCreated
	if len(resp.Added) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

// saveUpload stores an uploaded file under its own folder in the upload dir
// so its outputs land next to it. Content that does not sniff as an image is
// rejected.
func (h *Handlers) saveUpload(name string, open func() (io.ReadCloser, error)) (models.ConversionJob, error) {
	src, err := open()
	if err != nil {
		return models.ConversionJob{}, fmt.Errorf("failed to open upload: %w", err)
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		return models.ConversionJob{}, fmt.Errorf("failed to read upload: %w", err)
	}

	_, ext, err := job.DetectImage(data)
	if err != nil {
		return models.ConversionJob{}, err
	}

	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		base = "image"
	}
	if filepath.Ext(base) == "" {
		base += ext
	}

	dir := filepath.Join(config.GetUploadDir(), uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.ConversionJob{}, fmt.Errorf("failed to create upload dir: %w", err)
	}
	dest := filepath.Join(dir, base)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return models.ConversionJob{}, fmt.Errorf("failed to save upload: %w", err)
	}
	return job.FromPath(dest)
}

// FileHandler returns (GET) or removes (DELETE) one pending file.
func (h *Handlers) FileHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("File request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing file id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		info, err := h.Registry.Get(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, info)
	case http.MethodDelete:
		if err := h.Registry.Remove(id); err != nil {
			if errors.Is(err, job.ErrJobNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		logger.Infof("Removed file %s", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ClearConvertedHandler drops every file already converted.
func (h *Handlers) ClearConvertedHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Clear converted request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := h.Registry.RemoveConverted()
	logger.Infof("Removed %d converted files", n)
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}
