package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"golang.org/x/crypto/bcrypt"
)

var db *sql.DB
var dbPath string

// initDB opens (or creates) the board store at path, running the integrity
// guard first. On corruption the damaged files are quarantined and a fresh
// store is created, unless auto repair is disabled.
func initDB(path string) error {
	if db != nil {
		db.Close()
	}
	handle, err := openGuarded(path)
	if err != nil {
		return err
	}
	db = handle
	dbPath = path
	return seedUsers(db)
}

// openGuarded opens the store and verifies it with PRAGMA integrity_check
// before handing it out. A store that fails the check (or cannot be opened
// at all) is moved aside and recreated when auto repair is on.
func openGuarded(path string) (*sql.DB, error) {
	handle, err := openRaw(path)
	if err != nil {
		if !autoRepair {
			return nil, storeCorruptErr("open %s: %v", path, err)
		}
		log.Printf("store open failed, quarantining: %v", err)
		if _, qerr := quarantineStore(path, "open"); qerr != nil {
			return nil, storeCorruptErr("quarantine %s: %v", path, qerr)
		}
		handle, err = openRaw(path)
		if err != nil {
			return nil, fmt.Errorf("reopen after quarantine: %w", err)
		}
		if err := createSchema(handle); err != nil {
			handle.Close()
			return nil, err
		}
		return handle, nil
	}

	ok, detail := integrityCheck(handle)
	if ok {
		if err := createSchema(handle); err != nil {
			handle.Close()
			return nil, err
		}
		return handle, nil
	}

	handle.Close()
	if !autoRepair {
		return nil, storeCorruptErr("integrity check failed for %s: %s", path, detail)
	}
	log.Printf("integrity check failed for %s: %s", path, detail)
	if _, err := quarantineStore(path, "integrity_check"); err != nil {
		return nil, storeCorruptErr("quarantine %s: %v", path, err)
	}
	handle, err = openRaw(path)
	if err != nil {
		return nil, fmt.Errorf("reopen after quarantine: %w", err)
	}
	if err := createSchema(handle); err != nil {
		handle.Close()
		return nil, err
	}
	return handle, nil
}

func openRaw(path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	handle, err := sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return nil, err
	}
	handle.SetMaxOpenConns(10)
	handle.SetMaxIdleConns(5)
	handle.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return handle, nil
}

// integrityCheck runs PRAGMA integrity_check and reports the verdict. Any
// result other than the literal "ok" is a failure, with the first row
// returned as detail.
func integrityCheck(handle *sql.DB) (bool, string) {
	var result string
	if err := handle.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return false, err.Error()
	}
	if strings.ToLower(result) == "ok" {
		return true, ""
	}
	return false, result
}

// quarantineStore renames the database file and its WAL/SHM siblings to
// timestamped .corrupt backups. Backups are never deleted automatically.
func quarantineStore(path, tag string) ([]string, error) {
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		return nil, nil
	}
	base := path
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	ts := time.Now().UTC().Format("20060102-150405")
	var backups []string
	for _, ext := range []string{"", "-wal", "-shm"} {
		src := base + ext
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := fmt.Sprintf("%s.corrupt-%s-%s%s", base, ts, tag, ext)
		if err := os.Rename(src, dst); err != nil {
			return backups, err
		}
		log.Printf("quarantined %s -> %s", src, dst)
		backups = append(backups, dst)
	}
	return backups, nil
}

func createSchema(handle *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS boards (
			id TEXT PRIMARY KEY,
			serial_number TEXT UNIQUE NOT NULL,
			batch_number TEXT NOT NULL,
			kind TEXT NOT NULL CHECK(UPPER(kind) IN ('AM7','AU8')),
			stage TEXT NOT NULL CHECK(stage IN ('aging','coating','completed')),
			start_time TEXT NOT NULL,
			last_update TEXT NOT NULL,
			operator TEXT NOT NULL,
			slip_number TEXT,
			ng_flag INTEGER NOT NULL DEFAULT 0,
			ng_reason TEXT,
			ng_time TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS board_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			board_id TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			stage TEXT NOT NULL CHECK(stage IN ('aging','coating','completed')),
			timestamp TEXT NOT NULL,
			operator TEXT NOT NULL,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS slips (
			slip_number TEXT PRIMARY KEY,
			target_pairs INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name TEXT,
			role TEXT NOT NULL DEFAULT 'operator',
			active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT,
			summary TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_serial ON boards(serial_number)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_stage ON boards(stage)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_batch ON boards(batch_number)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_kind ON boards(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_slip ON boards(slip_number)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_last_update ON boards(last_update)`,
		`CREATE INDEX IF NOT EXISTS idx_history_board ON board_history(board_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_ts ON board_history(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	}
	for _, stmt := range schema {
		if _, err := handle.Exec(stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// seedUsers creates the default admin account when no users exist yet.
func seedUsers(handle *sql.DB) error {
	var count int
	if err := handle.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = handle.Exec(
		"INSERT INTO users (username, password_hash, display_name, role) VALUES (?, ?, ?, ?)",
		"admin", string(hash), "Administrator", "admin",
	)
	return err
}
