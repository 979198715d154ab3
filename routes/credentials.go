package routes

import (
	"encoding/json"
	"net/http"

	"pixshift/credentials"
	"pixshift/logger"
)

// CredentialsHandler stores (POST) or deletes (DELETE ?key=) publish target
// credentials. Stored values are never returned.
func (h *Handlers) CredentialsHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Credentials request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	switch r.Method {
	case http.MethodPost:
		var rec credentials.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := credentials.Validate(rec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		key, err := credentials.StoreCredentials(rec)
		if err != nil {
			logger.Errorf("Failed to store credentials: %v", err)
			http.Error(w, "Failed to store credentials", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"access_key": key})
	case http.MethodDelete:
		key := r.URL.Query().Get("key")
		if key == "" {
			http.Error(w, "Missing key parameter", http.StatusBadRequest)
			return
		}
		if err := credentials.DeleteCredentials(key); err != nil {
			http.Error(w, "Failed to delete credentials", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
