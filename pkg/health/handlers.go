package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves a probe as JSON. Unhealthy is always 503. Degraded is 200
// on the Health probe and 503 on Readiness and Liveness, which are binary.
func (c *Checker) Handler(probe Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Run(r.Context(), probe)

		code := http.StatusOK
		switch {
		case resp.Status == StatusUnhealthy:
			code = http.StatusServiceUnavailable
		case resp.Status == StatusDegraded && probe != Health:
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Mount registers /health, /health/ready and /health/live on mux
func (c *Checker) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/health", c.Handler(Health))
	mux.HandleFunc("/health/ready", c.Handler(Readiness))
	mux.HandleFunc("/health/live", c.Handler(Liveness))
}
