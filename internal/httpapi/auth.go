package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ziadkadry99/agentgw/internal/agentgwerr"
)

// bearerAuth enforces Authorization: Bearer <APIKey> on every /api/* route
// when an API key is configured. An empty APIKey leaves the façade open:
// local/dev deployments with no key configured are not required to
// authenticate.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) || strings.TrimPrefix(header, prefix) != s.cfg.APIKey {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("%w: invalid or missing bearer token", agentgwerr.ErrAuth))
			return
		}

		next.ServeHTTP(w, r)
	})
}
