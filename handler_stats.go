package main

import "net/http"

func handleStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := getStatistics()
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, st)
}

func handleWeeklyStatistics(w http.ResponseWriter, r *http.Request) {
	ws, err := weeklyStats()
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, ws)
}

func handleInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := inventorySummary()
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResp(w, inv)
}
