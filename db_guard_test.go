package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func corruptFile(t *testing.T, path string) {
	t.Helper()
	// A file that is not a SQLite database at all.
	if err := os.WriteFile(path, []byte("this is not a database, not even close"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
}

func listQuarantined(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var out []string
	for _, e := range entries {
		if strings.Contains(e.Name(), ".corrupt-") {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestOpenGuardedFreshStore(t *testing.T) {
	if err := loadConfig(""); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	path := filepath.Join(t.TempDir(), "boards.db")
	handle, err := openGuarded(path)
	if err != nil {
		t.Fatalf("openGuarded: %v", err)
	}
	defer handle.Close()

	var n int
	if err := handle.QueryRow("SELECT COUNT(*) FROM boards").Scan(&n); err != nil {
		t.Fatalf("schema missing: %v", err)
	}
}

func TestOpenGuardedQuarantinesCorruptStore(t *testing.T) {
	if err := loadConfig(""); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "boards.db")
	corruptFile(t, path)

	autoRepair = true
	handle, err := openGuarded(path)
	if err != nil {
		t.Fatalf("openGuarded should self-heal: %v", err)
	}
	defer handle.Close()

	// The fresh store works and the damaged file was kept as a backup.
	var n int
	if err := handle.QueryRow("SELECT COUNT(*) FROM boards").Scan(&n); err != nil {
		t.Fatalf("fresh schema missing: %v", err)
	}
	backups := listQuarantined(t, dir)
	if len(backups) == 0 {
		t.Fatal("corrupt file should have been quarantined, not deleted")
	}
	for _, b := range backups {
		info, err := os.Stat(filepath.Join(dir, b))
		if err != nil || info.Size() == 0 {
			t.Errorf("backup %s missing or empty", b)
		}
	}
}

func TestOpenGuardedAutoRepairDisabled(t *testing.T) {
	if err := loadConfig(""); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "boards.db")
	corruptFile(t, path)

	autoRepair = false
	defer func() { autoRepair = true }()

	_, err := openGuarded(path)
	if err == nil {
		t.Fatal("expected error with auto repair disabled")
	}
	if errKind(err) != ErrStoreCorrupt {
		t.Errorf("expected store corrupt error, got %v", err)
	}
	// Nothing was moved or recreated.
	if backups := listQuarantined(t, dir); len(backups) != 0 {
		t.Errorf("no quarantine should happen when disabled: %v", backups)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "this is not a database") {
		t.Error("original file must be left untouched")
	}
}

func TestQuarantineStoreSkipsMemory(t *testing.T) {
	backups, err := quarantineStore(":memory:", "test")
	if err != nil {
		t.Fatalf("quarantine memory: %v", err)
	}
	if backups != nil {
		t.Errorf("memory store should not produce backups: %v", backups)
	}
}

func TestInitDBSeedsAdmin(t *testing.T) {
	if err := loadConfig(""); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	path := filepath.Join(t.TempDir(), "boards.db")

	oldDB, oldPath := db, dbPath
	defer func() { db, dbPath = oldDB, oldPath }()
	db = nil

	if err := initDB(path); err != nil {
		t.Fatalf("initDB: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'admin'").Scan(&n); err != nil {
		t.Fatalf("users query: %v", err)
	}
	if n != 1 {
		t.Errorf("admin seed count = %d", n)
	}
}
