package main

import (
	"net/http"

	"boardtrack/internal/audit"
	"boardtrack/internal/validation"
)

func handleListSlips(w http.ResponseWriter, r *http.Request) {
	items, err := listSlips()
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonRespMeta(w, items, len(items), 1, 0)
}

func handleUpsertSlip(w http.ResponseWriter, r *http.Request) {
	var up SlipUpsert
	if err := decodeBody(r, &up); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "slipNumber", up.SlipNumber)
	validation.ValidateMaxLength(ve, "slipNumber", up.SlipNumber, 64)
	validation.ValidateNonNegative(ve, "targetPairs", up.TargetPairs)
	if ve.HasErrors() {
		jsonErr(w, ve.Error(), 400)
		return
	}

	slip, err := upsertSlip(up)
	if err != nil {
		writeErr(w, err)
		return
	}
	audit.Log(db, operatorName(r, ""), audit.ActionUpdate, "slips", slip.SlipNumber, "target set")
	jsonResp(w, slip)
}

func handleGetSlip(w http.ResponseWriter, r *http.Request, slipNumber string) {
	slip, err := getSlip(slipNumber)
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, slip)
}

func handleSlipStatus(w http.ResponseWriter, r *http.Request, slipNumber string) {
	status, err := slipStatus(slipNumber)
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, status)
}

func handlePatchSlipTarget(w http.ResponseWriter, r *http.Request, slipNumber string) {
	var patch SlipTargetPatch
	if err := decodeBody(r, &patch); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if patch.TargetPairs < 0 {
		jsonErr(w, "targetPairs must not be negative", 400)
		return
	}
	slip, err := patchSlipTarget(slipNumber, patch.TargetPairs)
	if err != nil {
		writeErr(w, err)
		return
	}
	audit.Log(db, operatorName(r, ""), audit.ActionUpdate, "slips", slip.SlipNumber, "target patched")
	jsonResp(w, slip)
}

func handleDeleteSlip(w http.ResponseWriter, r *http.Request, slipNumber string) {
	if !requireAdmin(w, r) {
		return
	}
	if err := deleteSlip(slipNumber); err != nil {
		writeErr(w, err)
		return
	}
	audit.Log(db, operatorName(r, ""), audit.ActionDelete, "slips", slipNumber, "slip deleted")
	jsonResp(w, map[string]string{"status": "deleted"})
}
