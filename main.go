package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"

	"boardtrack/internal/response"
)

func main() {
	port := flag.Int("port", 9100, "HTTP port")
	dbFlag := flag.String("db", "", "SQLite board store path (overrides config)")
	configPath := flag.String("config", "boardtrack.yaml", "Config file path")
	flag.Parse()

	if err := loadConfig(*configPath); err != nil {
		log.Fatal("config: ", err)
	}
	path := cfg.DBPath
	if *dbFlag != "" {
		path = *dbFlag
	}
	if err := initDB(path); err != nil {
		log.Fatal("DB init failed: ", err)
	}

	mux := newRouter()

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("boardtrack server starting on http://localhost%s", addr)
	log.Fatal(http.ListenAndServe(addr, logging(requireAuth(mux))))
}

func newRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogin(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogout(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/me", handleMe)
	mux.HandleFunc("/ws", handleWebSocket)

	// API routes - using a simple router
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		path = strings.TrimSuffix(path, "/")
		parts := strings.Split(path, "/")

		switch {
		// Boards
		case parts[0] == "boards" && len(parts) == 1 && r.Method == "GET":
			handleListBoards(w, r)
		case parts[0] == "boards" && len(parts) == 1 && r.Method == "POST":
			handleCreateBoard(w, r)
		case parts[0] == "boards" && len(parts) == 2 && r.Method == "GET":
			handleGetBoard(w, r, parts[1])
		case parts[0] == "boards" && len(parts) == 2 && (r.Method == "PATCH" || r.Method == "PUT"):
			handleAdvanceBoard(w, r, parts[1])
		case parts[0] == "boards" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteBoard(w, r, parts[1])
		case parts[0] == "boards" && len(parts) == 3 && parts[2] == "ng" && r.Method == "PATCH":
			handleSetNG(w, r, parts[1])
		case parts[0] == "boards" && len(parts) == 3 && parts[2] == "admin" && r.Method == "PATCH":
			handleAdminEditBoard(w, r, parts[1])

		// Scan station
		case path == "scan" && r.Method == "POST":
			handleScan(w, r)

		// Statistics and inventory
		case path == "statistics" && r.Method == "GET":
			handleStatistics(w, r)
		case path == "statistics/weekly" && r.Method == "GET":
			handleWeeklyStatistics(w, r)
		case path == "inventory" && r.Method == "GET":
			handleInventory(w, r)

		// Slips
		case parts[0] == "slips" && len(parts) == 1 && r.Method == "GET":
			handleListSlips(w, r)
		case parts[0] == "slips" && len(parts) == 1 && r.Method == "POST":
			handleUpsertSlip(w, r)
		case parts[0] == "slips" && len(parts) == 2 && r.Method == "GET":
			handleGetSlip(w, r, parts[1])
		case parts[0] == "slips" && len(parts) == 2 && r.Method == "PATCH":
			handlePatchSlipTarget(w, r, parts[1])
		case parts[0] == "slips" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteSlip(w, r, parts[1])
		case parts[0] == "slips" && len(parts) == 3 && parts[2] == "status" && r.Method == "GET":
			handleSlipStatus(w, r, parts[1])

		// Kinds
		case path == "kinds/infer" && r.Method == "GET":
			handleInferKind(w, r)

		// Maintenance
		case path == "maintenance/health" && r.Method == "GET":
			handleHealth(w, r)
		case path == "maintenance/repair" && r.Method == "POST":
			handleForceRepair(w, r)
		case path == "maintenance/info" && r.Method == "GET":
			handleMaintenanceInfo(w, r)
		case path == "broadcast" && r.Method == "POST":
			handleBroadcast(w, r)

		// Audit
		case path == "audit" && r.Method == "GET":
			handleAuditLog(w, r)

		default:
			json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		}
	})

	return mux
}

func jsonResp(w http.ResponseWriter, data interface{}) {
	response.JSON(w, data)
}

func jsonRespMeta(w http.ResponseWriter, data interface{}, total, page, limit int) {
	response.JSONMeta(w, data, total, page, limit)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	response.Err(w, msg, code)
}

func jsonErrCode(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": http.StatusText(code)})
}

func decodeBody(r *http.Request, v interface{}) error {
	return response.DecodeBody(r, v)
}
