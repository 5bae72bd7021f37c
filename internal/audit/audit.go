// Package audit records administrative actions in the audit_log table.
// Ordinary stage progression is covered by board_history; this log exists so
// that admin overrides, deletes and forced repairs are visible separately
// from normal production flow.
package audit

import (
	"database/sql"
	"log"
)

// Action constants.
const (
	ActionCreate    = "CREATE"
	ActionUpdate    = "UPDATE"
	ActionDelete    = "DELETE"
	ActionOverride  = "ADMIN_OVERRIDE"
	ActionNG        = "NG"
	ActionRepair    = "REPAIR"
	ActionBroadcast = "BROADCAST"
)

// Entry is one audit row.
type Entry struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	RecordID  string `json:"record_id"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}

// Log appends an audit row. Failures are logged and swallowed; auditing
// never blocks the operation it describes.
func Log(db *sql.DB, username, action, module, recordID, summary string) {
	_, err := db.Exec(
		"INSERT INTO audit_log (username, action, module, record_id, summary) VALUES (?, ?, ?, ?, ?)",
		username, action, module, recordID, summary)
	if err != nil {
		log.Printf("audit: %v", err)
	}
}

// Recent returns the newest audit rows, most recent first.
func Recent(db *sql.DB, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		"SELECT id, username, action, module, record_id, COALESCE(summary,''), created_at FROM audit_log ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		rows.Scan(&e.ID, &e.Username, &e.Action, &e.Module, &e.RecordID, &e.Summary, &e.CreatedAt)
		entries = append(entries, e)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
