package httpbridge

import (
	"encoding/json"
	"io"
	"net/http"
)

// apiResponse is the JSON envelope for command results.
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// handleGenerate starts a new alt-text generation for a clicked image.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if err := validateJSON(generateSchema, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		PageURL  string `json:"page_url"`
		ImageURL string `json:"image_url"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	jobID := s.orch.Generate(req.PageURL, req.ImageURL)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: true, Data: map[string]string{"job_id": jobID}})
}

// handleStatus replays the orchestrator's current state for a popup that
// just opened.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.orch.CheckStatus())
}

// handleUpdate writes alt text back to the WordPress media library.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if err := validateJSON(updateSchema, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		ImageURL string `json:"image_url"`
		AltText  string `json:"alt_text"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if !s.debounce.TryStart("update") {
		writeError(w, http.StatusTooManyRequests, "update already in progress")
		return
	}
	defer s.debounce.Finish("update")

	if err := s.orch.UpdateAltText(r.Context(), req.ImageURL, req.AltText); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, apiResponse{Success: true, Message: "Alt text updated in WordPress"})
}

// handleSync propagates alt text across the site via the AltSync plugin.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if err := validateJSON(syncSchema, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		ImageURL string `json:"image_url"`
		SyncMode string `json:"sync_mode"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if !s.debounce.TryStart("sync") {
		writeError(w, http.StatusTooManyRequests, "sync already in progress")
		return
	}
	defer s.debounce.Finish("sync")

	result, err := s.orch.SyncImage(r.Context(), req.ImageURL, req.SyncMode)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, apiResponse{Success: true, Message: result.Message, Data: result})
}

// handleNavigated marks a navigation boundary: cached media resolutions
// no longer apply.
func (s *Server) handleNavigated(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.orch.PageNavigated()
	writeJSON(w, apiResponse{Success: true})
}

// handleAltSyncStatus probes for the companion plugin. Always succeeds;
// an unreachable plugin just reads as unavailable.
func (s *Server) handleAltSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.orch.ProbeAltSync(r.Context()))
}

// handleSettings reads or writes the flat settings map for the options
// page. Reads return the stored values verbatim so the form can be
// restored.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.store.Settings())

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if err := validateJSON(settingsSchema, body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Unmarshal over the current settings so keys absent from the
		// request keep their stored values instead of zeroing out.
		settings := s.store.Settings()
		if err := json.Unmarshal(body, &settings); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		if err := s.store.Apply(settings); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, apiResponse{Success: true, Message: "Options saved"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth reports bridge liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}
