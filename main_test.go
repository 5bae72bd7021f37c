package main

import (
	"context"
	"net/http"
	"testing"

	"boardtrack/internal/auth"
	"boardtrack/internal/testutil"
)

// setupTest installs the default config and swaps the global db for a fresh
// in-memory store, restoring the previous handle on cleanup.
func setupTest(t *testing.T) {
	t.Helper()
	if err := loadConfig(""); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	oldDB, oldPath, oldLedger := db, dbPath, ledgerPath
	db = testutil.SetupTestDB(t)
	dbPath = ":memory:"
	ledgerPath = "nonexistent-ledger.db"
	t.Cleanup(func() {
		db.Close()
		db, dbPath, ledgerPath = oldDB, oldPath, oldLedger
	})
}

func asUser(r *http.Request, username, role string) *http.Request {
	u := &auth.User{ID: 1, Username: username, Role: role}
	return r.WithContext(context.WithValue(r.Context(), ctxUser, u))
}

func asAdmin(r *http.Request) *http.Request {
	return asUser(r, "admin", "admin")
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }
