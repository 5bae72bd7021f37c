package main

import (
	"net/http"
	"strings"

	"boardtrack/internal/audit"
)

// handleScan is the barcode-gun entry point: an unknown serial is created at
// aging, a known one advances. When the payload names a stage, that stage
// goes through the full transition rules, so a retried scan is an idempotent
// no-op instead of a second advance; without one, the board moves to its
// immediate successor.
func handleScan(w http.ResponseWriter, r *http.Request) {
	var req BoardCreate
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		jsonErr(w, "serialNumber is required", 400)
		return
	}
	if req.Stage != "" && !isValidStage(req.Stage) {
		jsonErr(w, "invalid stage", 400)
		return
	}
	req.Operator = operatorName(r, req.Operator)

	board, err := getBoardBySerial(serial)
	if errKind(err) == ErrNotFound {
		board, err = createBoard(req)
		if err != nil {
			writeErr(w, err)
			return
		}
		audit.Log(db, req.Operator, audit.ActionCreate, "boards", board.SerialNumber, "scanned in at "+board.Stage)
		broadcastBoard("create", board)
		w.WriteHeader(201)
		jsonResp(w, board)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	// A scan can attach the board to a slip before advancing, so a packing
	// list started mid-run still captures the board. The attach is recorded
	// on its own; it stands even if the stage request below is rejected.
	if req.SlipNumber != "" && req.SlipNumber != board.SlipNumber {
		target := 0
		if req.TargetPairs != nil {
			target = *req.TargetPairs
		}
		board, err = attachSlip(serial, req.SlipNumber, target, req.Operator)
		if err != nil {
			writeErr(w, err)
			return
		}
	}

	requested := req.Stage
	if requested == "" {
		requested = nextStage(board.Stage)
		if requested == "" {
			jsonErr(w, "board is completed, no further transitions allowed", 400)
			return
		}
	}
	board, err = advanceBoardStage(serial, requested, req.Operator, "")
	if err != nil {
		writeErr(w, err)
		return
	}
	audit.Log(db, req.Operator, audit.ActionUpdate, "boards", board.SerialNumber, "scanned to "+board.Stage)
	broadcastBoard("update", board)
	jsonResp(w, board)
}
