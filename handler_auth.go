package main

import (
	"net/http"
	"time"

	"boardtrack/internal/auth"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	user, err := auth.Authenticate(db, req.Username, req.Password)
	if err != nil {
		jsonErr(w, "Invalid username or password", 401)
		return
	}

	token, err := auth.CreateSession(db, user.ID)
	if err != nil {
		jsonErr(w, "Failed to create session", 500)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(auth.SessionTTL),
	})
	jsonResp(w, map[string]any{"user": user})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		auth.DeleteSession(db, cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	jsonResp(w, map[string]string{"status": "ok"})
}

func handleMe(w http.ResponseWriter, r *http.Request) {
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
	jsonResp(w, map[string]any{"user": user})
}
