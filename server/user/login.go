package user

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marcopiovanello/m3u8-dl/server/config"
	middlewares "github.com/marcopiovanello/m3u8-dl/server/middleware"
)

const tokenTTL = 24 * time.Hour

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func Login(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		auth := cfg.Authentication
		if err := auth.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		userOk := subtle.ConstantTimeCompare([]byte(req.Username), []byte(auth.Username)) == 1
		passOk := subtle.ConstantTimeCompare([]byte(req.Password), []byte(auth.Password)) == 1
		if !userOk || !passOk {
			http.Error(w, "invalid username or password", http.StatusUnauthorized)
			return
		}

		token, err := middlewares.IssueToken([]byte(auth.TokenSecret), req.Username, tokenTTL)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middlewares.TokenCookieName,
			Value:    token,
			HttpOnly: true,
			Path:     "/",
			Expires:  time.Now().Add(tokenTTL),
			SameSite: http.SameSiteStrictMode,
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	}
}

func Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middlewares.TokenCookieName,
		Value:    "",
		HttpOnly: true,
		Path:     "/",
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
