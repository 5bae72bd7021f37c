package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boardtrack/internal/models"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// SetupTestDB creates a standard in-memory SQLite database for testing with
// foreign keys enabled and the tracking schema created.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}

	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	createTables(t, testDB)
	seedAdminUser(t, testDB)

	return testDB
}

func createTables(t *testing.T, db *sql.DB) {
	t.Helper()
	tables := []struct {
		name string
		ddl  string
	}{
		{"boards", `CREATE TABLE IF NOT EXISTS boards (
			id            TEXT PRIMARY KEY,
			serial_number TEXT UNIQUE NOT NULL,
			batch_number  TEXT NOT NULL,
			kind          TEXT NOT NULL CHECK(UPPER(kind) IN ('AM7','AU8')),
			stage         TEXT NOT NULL CHECK(stage IN ('aging','coating','completed')),
			start_time    TEXT NOT NULL,
			last_update   TEXT NOT NULL,
			operator      TEXT NOT NULL,
			slip_number   TEXT,
			ng_flag       INTEGER NOT NULL DEFAULT 0,
			ng_reason     TEXT,
			ng_time       TEXT,
			created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
		{"board_history", `CREATE TABLE IF NOT EXISTS board_history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			board_id  TEXT NOT NULL,
			stage     TEXT NOT NULL CHECK(stage IN ('aging','coating','completed')),
			timestamp TEXT NOT NULL,
			operator  TEXT NOT NULL,
			notes     TEXT,
			FOREIGN KEY (board_id) REFERENCES boards(id) ON DELETE CASCADE
		)`},
		{"slips", `CREATE TABLE IF NOT EXISTS slips (
			slip_number  TEXT PRIMARY KEY,
			target_pairs INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`},
		{"users", `CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name TEXT,
			role TEXT DEFAULT 'user',
			active INTEGER DEFAULT 1,
			last_login DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`},
		{"sessions", `CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`},
		{"audit_log", `CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT DEFAULT 'system',
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT NOT NULL,
			summary TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`},
	}

	for _, tbl := range tables {
		if _, err := db.Exec(tbl.ddl); err != nil {
			t.Fatalf("Failed to create %s table: %v", tbl.name, err)
		}
	}
}

func seedAdminUser(t *testing.T, db *sql.DB) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash admin password: %v", err)
	}
	_, err = db.Exec(`INSERT INTO users (username, password_hash, display_name, role) VALUES (?, ?, ?, ?)`,
		"admin", string(hash), "Administrator", "admin")
	if err != nil {
		t.Fatalf("Failed to create default admin user: %v", err)
	}
}

// CreateTestUser creates a test user with the given credentials.
func CreateTestUser(t *testing.T, db *sql.DB, username, password, role string, active bool) int {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	activeInt := 0
	if active {
		activeInt = 1
	}

	result, err := db.Exec(
		"INSERT INTO users (username, password_hash, display_name, role, active) VALUES (?, ?, ?, ?, ?)",
		username, string(hash), username+" Display", role, activeInt,
	)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	id, _ := result.LastInsertId()
	return int(id)
}

// CreateTestSession creates a session token for the given user with default 24h expiry.
func CreateTestSession(t *testing.T, db *sql.DB, userID int) string {
	t.Helper()
	token := "test-session-token-" + time.Now().Format("20060102150405.000000")
	expiresAt := time.Now().Add(24 * time.Hour)

	_, err := db.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return token
}

// LoginAdmin returns a session token for the default admin user.
func LoginAdmin(t *testing.T, db *sql.DB) string {
	t.Helper()
	var adminID int
	err := db.QueryRow("SELECT id FROM users WHERE username = 'admin'").Scan(&adminID)
	if err != nil {
		t.Fatalf("Failed to find admin user: %v", err)
	}
	return CreateTestSession(t, db, adminID)
}

// LoginUser creates a regular user and returns their session token.
func LoginUser(t *testing.T, db *sql.DB, username string) string {
	t.Helper()
	userID := CreateTestUser(t, db, username, "password", "user", true)
	return CreateTestSession(t, db, userID)
}

// AuthedRequest creates an authenticated HTTP request with a session cookie.
func AuthedRequest(method, path string, body []byte, sessionToken string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: "boardtrack_session", Value: sessionToken})
	}

	return req
}

// AuthedJSONRequest creates an authenticated HTTP request with JSON content type.
func AuthedJSONRequest(method, path string, body interface{}, sessionToken string) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}

	req := AuthedRequest(method, path, bodyBytes, sessionToken)
	req.Header.Set("Content-Type", "application/json")

	return req
}

// AssertStatus checks that the HTTP status code matches expected.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeEnvelope decodes an API response envelope and extracts the data.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode API envelope: %v", err)
	}
	dataBytes, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(dataBytes, v); err != nil {
		t.Fatalf("Failed to decode data from envelope: %v", err)
	}
}
