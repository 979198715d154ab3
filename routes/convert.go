package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pixshift/job"
	"pixshift/logger"
	"pixshift/models"
	writerbackends "pixshift/writerBackends"
)

// ConvertRequest overrides the saved settings for one batch. Omitted fields
// keep the values of the active settings profile.
type ConvertRequest struct {
	models.BatchRequest
	Publish []models.PublishTarget `json:"publish,omitempty"`
}

// ConvertResponse reports one batch. Results and Failures follow registry order.
type ConvertResponse struct {
	Results         []models.Result         `json:"results"`
	Skipped         int                     `json:"skipped"`
	Failures        []JobFailure            `json:"failures,omitempty"`
	PublishFailures []models.PublishFailure `json:"publish_failures,omitempty"`
}

type JobFailure struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

// ConvertHandler runs one batch over the pending files.
func (h *Handlers) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Convert request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	settings, err := h.Settings.Load(h.Config.Profile)
	if err != nil {
		logger.Errorf("Failed to load settings: %v", err)
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	req := ConvertRequest{BatchRequest: settings.BatchRequest(), Publish: h.Config.PublishTargets}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !h.converting.TryLock() {
		http.Error(w, "A conversion is already running", http.StatusConflict)
		return
	}
	defer h.converting.Unlock()

	outcomes, err := h.Batch.Run(r.Context(), req.BatchRequest)
	if errors.Is(err, job.ErrNothingToConvert) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		logger.Errorf("Batch failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := ConvertResponse{Results: job.Results(outcomes)}
	for _, o := range outcomes {
		switch o.Kind {
		case models.OutcomeSkipped:
			resp.Skipped++
		case models.OutcomeFailed:
			resp.Failures = append(resp.Failures, JobFailure{JobID: o.JobID, Error: o.Err.Error()})
		}
	}

	if len(req.Publish) > 0 && len(resp.Results) > 0 {
		resp.PublishFailures = writerbackends.Publish(r.Context(), req.Publish, resp.Results, h.Config.PublishConcurrency)
	}

	writeJSON(w, http.StatusOK, resp)
}
