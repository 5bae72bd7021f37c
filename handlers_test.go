package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"boardtrack/internal/testutil"
)

func TestScanCreatesThenAdvances(t *testing.T) {
	setupTest(t)

	payload := map[string]any{"serialNumber": "10030034-0001", "operator": "alice"}

	// First scan: unknown serial, created at aging.
	w := httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan", payload, ""))
	testutil.AssertStatus(t, w, 201)
	var b Board
	testutil.DecodeEnvelope(t, w, &b)
	if b.Stage != StageAging || b.Kind != KindAM7 {
		t.Fatalf("first scan wrong: %+v", b)
	}

	// Second scan: advances to coating.
	w = httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan", payload, ""))
	testutil.AssertStatus(t, w, 200)
	testutil.DecodeEnvelope(t, w, &b)
	if b.Stage != StageCoating {
		t.Fatalf("second scan stage = %q", b.Stage)
	}

	// Third scan: completes.
	w = httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan", payload, ""))
	testutil.AssertStatus(t, w, 200)
	testutil.DecodeEnvelope(t, w, &b)
	if b.Stage != StageCompleted {
		t.Fatalf("third scan stage = %q", b.Stage)
	}

	// Fourth scan: terminal stage, rejected.
	w = httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan", payload, ""))
	testutil.AssertStatus(t, w, 400)
}

func TestScanAttachesSlip(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan",
		map[string]any{"serialNumber": "10030034-0001", "operator": "alice"}, ""))
	testutil.AssertStatus(t, w, 201)

	// Slip arrives on the second scan; board is attached before advancing.
	w = httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan",
		map[string]any{"serialNumber": "10030034-0001", "operator": "alice",
			"slipNumber": "PL-9", "targetPairs": 25}, ""))
	testutil.AssertStatus(t, w, 200)

	var b Board
	testutil.DecodeEnvelope(t, w, &b)
	if b.SlipNumber != "PL-9" || b.Stage != StageCoating {
		t.Fatalf("slip attach failed: %+v", b)
	}
	slip, err := getSlip("PL-9")
	if err != nil || slip.TargetPairs != 25 {
		t.Fatalf("slip not created: %v %+v", err, slip)
	}
}

func TestScanExplicitStageIsIdempotent(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan",
		map[string]any{"serialNumber": "10030034-0001", "operator": "alice"}, ""))
	testutil.AssertStatus(t, w, 201)

	payload := map[string]any{"serialNumber": "10030034-0001", "operator": "alice", "stage": "coating"}
	w = httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan", payload, ""))
	testutil.AssertStatus(t, w, 200)
	var b Board
	testutil.DecodeEnvelope(t, w, &b)
	if b.Stage != StageCoating {
		t.Fatalf("stage = %q, want coating", b.Stage)
	}

	// A scanner retry of the same request must not advance again.
	w = httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan", payload, ""))
	testutil.AssertStatus(t, w, 200)
	testutil.DecodeEnvelope(t, w, &b)
	if b.Stage != StageCoating {
		t.Fatalf("retried scan moved the board to %q", b.Stage)
	}
	if len(b.History) != 2 {
		t.Errorf("history len = %d, retry must not add a row", len(b.History))
	}

	// A stale scan for an earlier stage is rejected, not reinterpreted.
	w = httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan",
		map[string]any{"serialNumber": "10030034-0001", "operator": "alice", "stage": "aging"}, ""))
	testutil.AssertStatus(t, w, 400)

	w = httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan",
		map[string]any{"serialNumber": "10030034-0001", "operator": "alice", "stage": "shipping"}, ""))
	testutil.AssertStatus(t, w, 400)
}

func TestScanSlipAttachHasOwnHistoryRow(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan",
		map[string]any{"serialNumber": "10030034-0001", "operator": "alice"}, ""))
	testutil.AssertStatus(t, w, 201)

	// Repeating the current stage is a no-op, but the attach still lands
	// with its own history row and timestamp.
	w = httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan",
		map[string]any{"serialNumber": "10030034-0001", "operator": "bob",
			"stage": "aging", "slipNumber": "PL-3"}, ""))
	testutil.AssertStatus(t, w, 200)

	b, err := getBoardBySerial("10030034-0001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.SlipNumber != "PL-3" || b.Operator != "bob" {
		t.Fatalf("attach not stamped: %+v", b)
	}
	if len(b.History) != 2 {
		t.Fatalf("history len = %d, want 2 (create + attach)", len(b.History))
	}
	attach := b.History[1]
	if !strings.Contains(attach.Notes, "attach slip PL-3") || attach.Stage != StageAging || attach.Operator != "bob" {
		t.Errorf("attach row wrong: %+v", attach)
	}
}

func TestScanSlipAttachSurvivesRejectedAdvance(t *testing.T) {
	setupTest(t)

	b, _ := createBoard(BoardCreate{SerialNumber: "10030034-0001", Operator: "a"})
	advanceBoardStage(b.SerialNumber, StageCoating, "a", "")
	adminEditBoard(b.SerialNumber, BoardAdminPatch{Stage: strPtr(StageAging)}, "admin")

	// Advancing back to coating today is a same-day duplicate, but the slip
	// attach that preceded it must persist with its audit trace.
	w := httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan",
		map[string]any{"serialNumber": "10030034-0001", "operator": "alice",
			"stage": "coating", "slipNumber": "PL-4"}, ""))
	testutil.AssertStatus(t, w, 409)

	b, err := getBoardBySerial("10030034-0001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.SlipNumber != "PL-4" {
		t.Errorf("attach lost after rejected advance: %q", b.SlipNumber)
	}
	found := false
	for _, ev := range b.History {
		if strings.Contains(ev.Notes, "attach slip PL-4") {
			found = true
		}
	}
	if !found {
		t.Error("attach left no history row")
	}
}

func TestScanMissingSerial(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleScan(w, testutil.AuthedJSONRequest("POST", "/api/v1/scan",
		map[string]any{"operator": "alice"}, ""))
	testutil.AssertStatus(t, w, 400)
}

func TestCreateBoardEndpointValidation(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleCreateBoard(w, testutil.AuthedJSONRequest("POST", "/api/v1/boards",
		map[string]any{"serialNumber": "", "stage": "bogus", "targetPairs": -1}, ""))
	testutil.AssertStatus(t, w, 400)
}

func TestBoardEndpointsFlow(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleCreateBoard(w, testutil.AuthedJSONRequest("POST", "/api/v1/boards",
		map[string]any{"serialNumber": "10030035-0001", "operator": "alice"}, ""))
	testutil.AssertStatus(t, w, 201)

	w = httptest.NewRecorder()
	handleGetBoard(w, testutil.AuthedRequest("GET", "/api/v1/boards/10030035-0001", nil, ""), "10030035-0001")
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	handleAdvanceBoard(w, testutil.AuthedJSONRequest("PATCH", "/api/v1/boards/10030035-0001",
		map[string]any{"stage": "coating"}, ""), "10030035-0001")
	testutil.AssertStatus(t, w, 200)

	// Skipping ahead is a 400 with the expected stage named.
	w = httptest.NewRecorder()
	handleAdvanceBoard(w, testutil.AuthedJSONRequest("PATCH", "/api/v1/boards/10030035-0001",
		map[string]any{"stage": "aging"}, ""), "10030035-0001")
	testutil.AssertStatus(t, w, 400)

	w = httptest.NewRecorder()
	handleSetNG(w, testutil.AuthedJSONRequest("PATCH", "/api/v1/boards/10030035-0001/ng",
		map[string]any{"ng": true, "reason": "bent pin"}, ""), "10030035-0001")
	testutil.AssertStatus(t, w, 200)
	var b Board
	testutil.DecodeEnvelope(t, w, &b)
	if !b.NGFlag {
		t.Fatal("NG flag not set")
	}

	w = httptest.NewRecorder()
	handleGetBoard(w, testutil.AuthedRequest("GET", "/api/v1/boards/missing", nil, ""), "missing")
	testutil.AssertStatus(t, w, 404)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	setupTest(t)

	createBoard(BoardCreate{SerialNumber: "10030034-0001", Operator: "a"})

	// Plain user: forbidden.
	req := testutil.AuthedJSONRequest("PATCH", "/api/v1/boards/10030034-0001/admin",
		map[string]any{"batchNumber": "B-1"}, "")
	w := httptest.NewRecorder()
	handleAdminEditBoard(w, asUser(req, "bob", "user"), "10030034-0001")
	testutil.AssertStatus(t, w, 403)

	w = httptest.NewRecorder()
	handleDeleteBoard(w, asUser(testutil.AuthedRequest("DELETE", "/api/v1/boards/10030034-0001", nil, ""), "bob", "user"), "10030034-0001")
	testutil.AssertStatus(t, w, 403)

	// Admin: allowed.
	w = httptest.NewRecorder()
	handleAdminEditBoard(w, asAdmin(testutil.AuthedJSONRequest("PATCH", "/api/v1/boards/10030034-0001/admin",
		map[string]any{"batchNumber": "B-1"}, "")), "10030034-0001")
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	handleDeleteBoard(w, asAdmin(testutil.AuthedRequest("DELETE", "/api/v1/boards/10030034-0001", nil, "")), "10030034-0001")
	testutil.AssertStatus(t, w, 200)
}

func TestStatisticsEndpoint(t *testing.T) {
	setupTest(t)

	completeBoard(t, "10030034-A")
	completeBoard(t, "10030035-A")

	w := httptest.NewRecorder()
	handleStatistics(w, testutil.AuthedRequest("GET", "/api/v1/statistics", nil, ""))
	testutil.AssertStatus(t, w, 200)
	var st Statistics
	testutil.DecodeEnvelope(t, w, &st)
	if st.Completed != 2 || st.PairsAvailable != 1 {
		t.Errorf("statistics wrong: %+v", st)
	}

	w = httptest.NewRecorder()
	handleInventory(w, testutil.AuthedRequest("GET", "/api/v1/inventory", nil, ""))
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	handleWeeklyStatistics(w, testutil.AuthedRequest("GET", "/api/v1/statistics/weekly", nil, ""))
	testutil.AssertStatus(t, w, 200)
}

func TestInferKindEndpoint(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleInferKind(w, testutil.AuthedRequest("GET", "/api/v1/kinds/infer?serial=10030035-77", nil, ""))
	testutil.AssertStatus(t, w, 200)
	var resp map[string]string
	testutil.DecodeEnvelope(t, w, &resp)
	if resp["kind"] != KindAU8 || resp["normalized"] != "1003003577" {
		t.Errorf("infer response wrong: %+v", resp)
	}

	w = httptest.NewRecorder()
	handleInferKind(w, testutil.AuthedRequest("GET", "/api/v1/kinds/infer", nil, ""))
	testutil.AssertStatus(t, w, 400)
}

func TestSlipEndpoints(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleUpsertSlip(w, testutil.AuthedJSONRequest("POST", "/api/v1/slips",
		map[string]any{"slipNumber": "PL-1", "targetPairs": 10}, ""))
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	handleGetSlip(w, testutil.AuthedRequest("GET", "/api/v1/slips/PL-1", nil, ""), "PL-1")
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	handlePatchSlipTarget(w, testutil.AuthedJSONRequest("PATCH", "/api/v1/slips/PL-1",
		map[string]any{"targetPairs": 4}, ""), "PL-1")
	testutil.AssertStatus(t, w, 200)
	var slip Slip
	testutil.DecodeEnvelope(t, w, &slip)
	if slip.TargetPairs != 4 {
		t.Errorf("patched target = %d", slip.TargetPairs)
	}

	w = httptest.NewRecorder()
	handleSlipStatus(w, testutil.AuthedRequest("GET", "/api/v1/slips/PL-1/status", nil, ""), "PL-1")
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	handleListSlips(w, testutil.AuthedRequest("GET", "/api/v1/slips", nil, ""))
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	handleDeleteSlip(w, asAdmin(testutil.AuthedRequest("DELETE", "/api/v1/slips/PL-1", nil, "")), "PL-1")
	testutil.AssertStatus(t, w, 200)
}

func TestMaintenanceEndpoints(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleHealth(w, testutil.AuthedRequest("GET", "/api/v1/maintenance/health", nil, ""))
	testutil.AssertStatus(t, w, 200)
	var hs HealthStatus
	testutil.DecodeEnvelope(t, w, &hs)
	if !hs.OK {
		t.Errorf("health should be ok: %+v", hs)
	}

	w = httptest.NewRecorder()
	handleMaintenanceInfo(w, testutil.AuthedRequest("GET", "/api/v1/maintenance/info", nil, ""))
	testutil.AssertStatus(t, w, 200)

	// Broadcast requires admin.
	w = httptest.NewRecorder()
	handleBroadcast(w, asUser(testutil.AuthedJSONRequest("POST", "/api/v1/broadcast",
		map[string]any{"type": "announcement"}, ""), "bob", "user"))
	testutil.AssertStatus(t, w, 403)

	w = httptest.NewRecorder()
	handleBroadcast(w, asAdmin(testutil.AuthedJSONRequest("POST", "/api/v1/broadcast",
		map[string]any{"type": "announcement"}, "")))
	testutil.AssertStatus(t, w, 200)
}

func TestRouterAcceptsPutAndPatchForStage(t *testing.T) {
	setupTest(t)

	createBoard(BoardCreate{SerialNumber: "10030034-0001", Operator: "a"})
	token := testutil.LoginAdmin(t, db)
	srv := requireAuth(newRouter())

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, testutil.AuthedJSONRequest("PUT", "/api/v1/boards/10030034-0001",
		map[string]any{"stage": "coating"}, token))
	testutil.AssertStatus(t, w, 200)
	var b Board
	testutil.DecodeEnvelope(t, w, &b)
	if b.Stage != StageCoating {
		t.Fatalf("PUT advance: stage = %q", b.Stage)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, testutil.AuthedJSONRequest("PATCH", "/api/v1/boards/10030034-0001",
		map[string]any{"stage": "completed"}, token))
	testutil.AssertStatus(t, w, 200)
	testutil.DecodeEnvelope(t, w, &b)
	if b.Stage != StageCompleted {
		t.Fatalf("PATCH advance: stage = %q", b.Stage)
	}
}

func TestAuditEndpoint(t *testing.T) {
	setupTest(t)

	w := httptest.NewRecorder()
	handleCreateBoard(w, testutil.AuthedJSONRequest("POST", "/api/v1/boards",
		map[string]any{"serialNumber": "10030034-0001", "operator": "alice"}, ""))
	testutil.AssertStatus(t, w, 201)

	w = httptest.NewRecorder()
	handleAuditLog(w, testutil.AuthedRequest("GET", "/api/v1/audit", nil, ""))
	testutil.AssertStatus(t, w, 200)
	body := w.Body.String()
	if !strings.Contains(body, "CREATE") {
		t.Errorf("audit log should record the create: %s", body)
	}
}
