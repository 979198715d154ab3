package routes

import (
	"encoding/json"
	"net/http"

	"pixshift/logger"
)

// SettingsHandler returns (GET) or replaces (PUT) the active settings profile.
// DELETE resets it to the defaults.
func (h *Handlers) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Settings request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)
	profile := h.Config.Profile

	switch r.Method {
	case http.MethodGet:
		st, err := h.Settings.Load(profile)
		if err != nil {
			logger.Errorf("Failed to load settings: %v", err)
			http.Error(w, "Failed to load settings", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodPut:
		st, err := h.Settings.Load(profile)
		if err != nil {
			http.Error(w, "Failed to load settings", http.StatusInternalServerError)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.Settings.Save(profile, st); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Infof("Saved settings profile %q", profile)
		writeJSON(w, http.StatusOK, st)
	case http.MethodDelete:
		if err := h.Settings.Reset(profile); err != nil {
			http.Error(w, "Failed to reset settings", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
