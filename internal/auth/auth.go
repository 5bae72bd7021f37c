// Package auth owns password hashing and session management. The tracking
// core trusts the principal this package resolves; it never re-derives
// identity itself.
package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SessionTTL is the sliding-window lifetime of a session.
const SessionTTL = 24 * time.Hour

// ErrBadCredentials is returned for unknown users and wrong passwords alike.
var ErrBadCredentials = errors.New("invalid username or password")

// User is the authenticated principal attached to every core operation.
type User struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate checks a username/password pair against the users table.
func Authenticate(db *sql.DB, username, password string) (*User, error) {
	var u User
	var hash string
	err := db.QueryRow(
		"SELECT id, username, display_name, role, password_hash FROM users WHERE username = ? AND active = 1",
		username).Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &hash)
	if err != nil {
		return nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return &u, nil
}

// NewToken returns a 32-byte random hex token.
func NewToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateSession stores a fresh session token for the user and returns it.
func CreateSession(db *sql.DB, userID int) (string, error) {
	db.Exec("DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP")

	var token string
	var err error
	expires := time.Now().Add(SessionTTL)
	for i := 0; i < 3; i++ {
		token = NewToken()
		_, err = db.Exec("INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
			token, userID, expires.Format("2006-01-02 15:04:05"))
		if err == nil {
			return token, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return "", err
}

// SessionUser resolves a session token to its user, or nil if the token is
// unknown or expired.
func SessionUser(db *sql.DB, token string) *User {
	var u User
	err := db.QueryRow(`SELECT u.id, u.username, u.display_name, u.role
		FROM sessions s JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND u.active = 1 AND s.expires_at > CURRENT_TIMESTAMP`, token).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role)
	if err != nil {
		return nil
	}
	return &u
}

// TouchSession extends a session's expiry (sliding window) and returns the
// new expiry time.
func TouchSession(db *sql.DB, token string) time.Time {
	expires := time.Now().Add(SessionTTL)
	db.Exec("UPDATE sessions SET expires_at = ? WHERE token = ?",
		expires.Format("2006-01-02 15:04:05"), token)
	return expires
}

// DeleteSession removes a session token.
func DeleteSession(db *sql.DB, token string) {
	db.Exec("DELETE FROM sessions WHERE token = ?", token)
}
