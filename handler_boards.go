package main

import (
	"net/http"
	"strconv"
	"strings"

	"boardtrack/internal/audit"
	"boardtrack/internal/validation"
)

func handleListBoards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := boardFilters{
		Stage:  q.Get("stage"),
		Kind:   q.Get("kind"),
		Batch:  q.Get("batch"),
		Slip:   q.Get("slip"),
		Search: q.Get("search"),
		NGOnly: q.Get("ng") == "1" || q.Get("ng") == "true",
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if f.Stage != "" && !isValidStage(f.Stage) {
		jsonErr(w, "invalid stage filter", 400)
		return
	}

	boards, err := listBoards(f)
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonRespMeta(w, boards, len(boards), 1, f.Limit)
}

func handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var bc BoardCreate
	if err := decodeBody(r, &bc); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "serialNumber", bc.SerialNumber)
	validation.ValidateMaxLength(ve, "serialNumber", bc.SerialNumber, 64)
	if bc.Stage != "" {
		validation.ValidateEnum(ve, "stage", bc.Stage, validation.ValidStages)
	}
	if bc.Kind != "" {
		validation.ValidateEnum(ve, "kind", strings.ToUpper(bc.Kind), validation.ValidKinds)
	}
	if bc.TargetPairs != nil {
		validation.ValidateNonNegative(ve, "targetPairs", *bc.TargetPairs)
	}
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	bc.Operator = operatorName(r, bc.Operator)
	board, err := createBoard(bc)
	if err != nil {
		writeErr(w, err)
		return
	}
	audit.Log(db, bc.Operator, audit.ActionCreate, "boards", board.SerialNumber, "board created at "+board.Stage)
	broadcastBoard("create", board)
	w.WriteHeader(201)
	jsonResp(w, board)
}

func handleGetBoard(w http.ResponseWriter, r *http.Request, serial string) {
	board, err := getBoardBySerial(serial)
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, board)
}

// handleAdvanceBoard performs an ordinary stage transition. Repeating the
// current stage is a no-op success; anything else must be the immediate
// successor, at most once per day.
func handleAdvanceBoard(w http.ResponseWriter, r *http.Request, serial string) {
	var patch BoardStagePatch
	if err := decodeBody(r, &patch); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if !isValidStage(patch.Stage) {
		jsonErr(w, "invalid stage", 400)
		return
	}

	op := operatorName(r, "")
	board, err := advanceBoardStage(serial, patch.Stage, op, "")
	if err != nil {
		writeErr(w, err)
		return
	}
	audit.Log(db, op, audit.ActionUpdate, "boards", board.SerialNumber, "stage "+board.Stage)
	broadcastBoard("update", board)
	jsonResp(w, board)
}

func handleSetNG(w http.ResponseWriter, r *http.Request, serial string) {
	var patch NGPatch
	if err := decodeBody(r, &patch); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	op := operatorName(r, "")
	board, err := setDefect(serial, patch.NG, patch.Reason, op)
	if err != nil {
		writeErr(w, err)
		return
	}
	summary := "NG cleared"
	if patch.NG {
		summary = "NG flagged: " + patch.Reason
	}
	audit.Log(db, op, audit.ActionNG, "boards", board.SerialNumber, summary)
	broadcastBoard("ng", board)
	jsonResp(w, board)
}

func handleAdminEditBoard(w http.ResponseWriter, r *http.Request, serial string) {
	if !requireAdmin(w, r) {
		return
	}
	var patch BoardAdminPatch
	if err := decodeBody(r, &patch); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	op := operatorName(r, "")
	board, err := adminEditBoard(serial, patch, op)
	if err != nil {
		writeErr(w, err)
		return
	}
	audit.Log(db, op, audit.ActionOverride, "boards", board.SerialNumber, "admin edit")
	broadcastBoard("admin_edit", board)
	jsonResp(w, board)
}

func handleDeleteBoard(w http.ResponseWriter, r *http.Request, serial string) {
	if !requireAdmin(w, r) {
		return
	}
	if err := deleteBoard(serial); err != nil {
		writeErr(w, err)
		return
	}
	op := operatorName(r, "")
	audit.Log(db, op, audit.ActionDelete, "boards", serial, "board deleted")
	broadcastDeleted(serial)
	jsonResp(w, map[string]string{"status": "deleted"})
}

func handleInferKind(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("serial")
	if strings.TrimSpace(serial) == "" {
		jsonErr(w, "serial is required", 400)
		return
	}
	kind := inferKind(serial)
	jsonResp(w, map[string]string{
		"serialNumber": serial,
		"normalized":   normalizeSerial(serial),
		"kind":         kind,
	})
}

func handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := audit.Recent(db, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, entries)
}
