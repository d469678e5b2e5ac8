package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Status is the server health report.
type Status struct {
	// How long the server has been running
	Uptime string `json:"uptime"`

	// Backend of the contract layout cache, "none" when disabled
	CacheBackend string `json:"cache_backend"`

	// Number of layouts on display
	WorkspaceLayouts int `json:"workspace_layouts"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := Status{
		Uptime:           time.Since(s.started).String(),
		CacheBackend:     s.cacheName,
		WorkspaceLayouts: s.workspace.Len(),
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Errorln("failed to encode health check response: ", err)
	}
}
