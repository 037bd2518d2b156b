package api

import (
	"context"
	"net/http"
	"time"
)

// healthProbeTimeout bounds each dependency probe.
const healthProbeTimeout = 3 * time.Second

// HealthResponse reports overall and per-dependency health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// handleHealth probes every registered dependency. Overall status is
// degraded when any probe fails; the endpoint still returns 200 so
// monitors can read the per-check detail.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Checks:  make(map[string]string, len(s.health)),
	}

	for name, probe := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		err := probe(ctx)
		cancel()
		if err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, http.StatusOK, resp)
}
