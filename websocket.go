package main

import (
	"net/http"

	"boardtrack/internal/websocket"
)

var wsHub = websocket.NewHub()

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.HandleWebSocket(wsHub, w, r)
}

// broadcastBoard pushes a board mutation to dashboard clients, followed by a
// fresh statistics snapshot so counters update without polling.
func broadcastBoard(action string, b *Board) {
	wsHub.Broadcast(websocket.Event{Type: "board_update", Action: action, Board: b})
	broadcastStatistics()
}

func broadcastStatistics() {
	st, err := getStatistics()
	if err != nil {
		return
	}
	wsHub.Broadcast(websocket.Event{Type: "statistics_update", Statistics: st})
}

func broadcastDeleted(serial string) {
	wsHub.Broadcast(websocket.Event{Type: "board_deleted", SerialNumber: serial})
	broadcastStatistics()
}
