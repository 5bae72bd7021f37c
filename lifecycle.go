package main

import "time"

const (
	StageAging     = "aging"
	StageCoating   = "coating"
	StageCompleted = "completed"
)

// stageOrder is the only legal progression. NG flags never change it.
var stageOrder = []string{StageAging, StageCoating, StageCompleted}

func isValidStage(s string) bool {
	for _, st := range stageOrder {
		if st == s {
			return true
		}
	}
	return false
}

// nextStage returns the immediate successor of s, or "" when s is terminal
// or unknown.
func nextStage(s string) string {
	for i, st := range stageOrder {
		if st == s && i+1 < len(stageOrder) {
			return stageOrder[i+1]
		}
	}
	return ""
}

// nowISO is the canonical timestamp for board events, in the facility
// timezone so calendar-day comparisons match what the floor sees.
func nowISO() string {
	return time.Now().In(facilityTZ).Format("2006-01-02T15:04:05")
}

// dayKey reduces an event timestamp to its facility-local calendar day.
// Timestamps are stored without offset, already in facility time, so the
// date prefix is the day.
func dayKey(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

func todayKey() string {
	return time.Now().In(facilityTZ).Format("2006-01-02")
}

// validateTransition checks a requested stage change against the current
// stage. It returns (noop, err): noop means the request repeats the current
// stage and should succeed without recording anything.
func validateTransition(current, requested string) (bool, error) {
	if current == StageCompleted && requested != StageCompleted {
		return false, invalidTransitionErr("board is completed, no further transitions allowed")
	}
	if requested == current {
		return true, nil
	}
	if expected := nextStage(current); requested != expected {
		return false, invalidTransitionErr("cannot move from %s to %s, expected %s", current, requested, expected)
	}
	return false, nil
}
