package main

import (
	"log"
	"net/http"
	"os"

	"boardtrack/internal/audit"
)

// handleHealth runs an integrity check against the live store. It never
// repairs; it only reports.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	ok, detail := integrityCheck(db)
	status := HealthStatus{OK: ok, Detail: detail, DBPath: dbPath}
	if !ok {
		w.WriteHeader(500)
	}
	jsonResp(w, status)
}

// handleForceRepair quarantines the current store and recreates it, even if
// the integrity check passes. Admin only; data loss is the point.
func handleForceRepair(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	op := operatorName(r, "")

	if db != nil {
		db.Close()
		db = nil
	}
	backups, err := quarantineStore(dbPath, "manual")
	if err != nil {
		// Get a handle back before failing, or every later request would
		// hit a nil db.
		if reopenErr := initDB(dbPath); reopenErr != nil {
			log.Printf("reopen after failed quarantine: %v", reopenErr)
		}
		jsonErr(w, "quarantine failed: "+err.Error(), 500)
		return
	}
	if err := initDB(dbPath); err != nil {
		writeErr(w, err)
		return
	}
	audit.Log(db, op, audit.ActionRepair, "maintenance", dbPath, "forced store repair")
	if backups == nil {
		backups = []string{}
	}
	jsonResp(w, map[string]any{"status": "repaired", "backups": backups})
}

// handleMaintenanceInfo reports store paths and ledger presence.
func handleMaintenanceInfo(w http.ResponseWriter, r *http.Request) {
	_, err := os.Stat(ledgerPath)
	jsonResp(w, map[string]any{
		"dbPath":        dbPath,
		"ledgerPath":    ledgerPath,
		"ledgerPresent": err == nil,
		"timezone":      facilityTZ.String(),
		"autoRepair":    autoRepair,
		"wsClients":     wsHub.ClientCount(),
	})
}

// handleBroadcast relays an arbitrary payload to connected dashboards.
func handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var payload map[string]any
	if err := decodeBody(r, &payload); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	wsHub.BroadcastRaw(payload)
	audit.Log(db, operatorName(r, ""), audit.ActionBroadcast, "maintenance", "", "manual broadcast")
	jsonResp(w, map[string]any{"status": "sent", "clients": wsHub.ClientCount()})
}
