package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// Permissive CORS header values sent on every response when any origin is allowed.
const (
	permissiveMethods = "GET,OPTIONS,PATCH,DELETE,POST,PUT"
	permissiveHeaders = "X-CSRF-Token, X-Requested-With, Accept, Accept-Version, Content-Length, Content-MD5, Content-Type, Date, X-Api-Version, Authorization"
)

// CORS sets cross-origin headers and answers every OPTIONS request with an
// empty 200. With allowAll the same fixed headers go on every response, with
// or without an Origin header. Otherwise only the listed origins are echoed.
func CORS(allowAll bool, origins []string) func(http.Handler) http.Handler {
	if allowAll {
		return permissiveCORS
	}

	strict := cors.Handler(cors.Options{
		AllowedOrigins:     origins,
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		AllowCredentials:   true,
		MaxAge:             300,
		OptionsPassthrough: true,
	})
	return func(next http.Handler) http.Handler {
		return strict(optionsOK(next))
	}
}

func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", permissiveMethods)
		h.Set("Access-Control-Allow-Headers", permissiveHeaders)

		optionsOK(next).ServeHTTP(w, r)
	})
}

// optionsOK short-circuits OPTIONS with 200 and no body.
func optionsOK(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
