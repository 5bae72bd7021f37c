package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"boardtrack/internal/auth"
)

type contextKey string

const ctxUser contextKey = "user"

const sessionCookie = "boardtrack_session"

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/auth/login" || path == "/auth/logout" || path == "/auth/me" ||
			path == "/api/v1/maintenance/health" {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			jsonErrCode(w, "Unauthorized", 401)
			return
		}

		user := auth.SessionUser(db, cookie.Value)
		if user == nil {
			jsonErrCode(w, "Unauthorized", 401)
			return
		}

		expires := auth.TouchSession(db, cookie.Value)
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    cookie.Value,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  expires,
		})

		ctx := context.WithValue(r.Context(), ctxUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user from the request context.
func currentUser(r *http.Request) *auth.User {
	u, _ := r.Context().Value(ctxUser).(*auth.User)
	return u
}

// operatorName resolves who performed a write: an explicit operator in the
// payload wins, otherwise the session user.
func operatorName(r *http.Request, explicit string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	if u := currentUser(r); u != nil {
		return u.Username
	}
	return "unknown"
}

// requireAdmin gates destructive and override endpoints.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	u := currentUser(r)
	if u == nil || u.Role != "admin" {
		jsonErrCode(w, "Admin access required", 403)
		return false
	}
	return true
}
