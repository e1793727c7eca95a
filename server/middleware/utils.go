package middlewares

import (
	"net/http"

	"github.com/marcopiovanello/m3u8-dl/server/config"
)

// ApplyAuthenticationByConfig guards next only when authentication is
// enabled in cfg.
func ApplyAuthenticationByConfig(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Authentication.RequireAuth {
			return next
		}
		return Authenticated([]byte(cfg.Authentication.TokenSecret))(next)
	}
}
