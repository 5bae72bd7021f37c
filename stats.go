package main

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"os"
	"time"
)

// getStatistics builds the reconciliation snapshot: raw stage distribution
// from the board store, consumption from the external ledger, and the
// clamped availability derived from both. Ledger trouble degrades to zero
// consumption rather than failing the whole snapshot.
func getStatistics() (*Statistics, error) {
	st := Statistics{
		ByKind:          map[string]KindBucket{},
		CompletedByKind: map[string]int{},
	}
	for _, k := range []string{KindAM7, KindAU8} {
		st.ByKind[k] = KindBucket{}
		st.CompletedByKind[k] = 0
	}

	rows, err := db.Query("SELECT kind, stage, COUNT(*) FROM boards GROUP BY kind, stage")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var kind, stage string
		var n int
		if err := rows.Scan(&kind, &stage, &n); err != nil {
			rows.Close()
			return nil, err
		}
		b := st.ByKind[kind]
		b.Total += n
		switch stage {
		case StageAging:
			b.Aging += n
			st.Aging += n
		case StageCoating:
			b.Coating += n
			st.Coating += n
		case StageCompleted:
			b.Completed += n
			st.Completed += n
		}
		st.ByKind[kind] = b
		st.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if st.Total > 0 {
		st.Efficiency = math.Round(float64(st.Completed)/float64(st.Total)*1000) / 10
	}

	// Availability counts only good completed boards; NG units sit in the
	// raw completed count but can never be drawn from.
	for _, k := range []string{KindAM7, KindAU8} {
		serials, err := completedGoodSerials(k)
		if err != nil {
			return nil, err
		}
		consumed, err := countConsumed(k, serials)
		if err != nil {
			log.Printf("consumption lookup failed for %s: %v", k, err)
			consumed = 0
		}
		good := len(serials)
		st.CompletedByKind[k] = good
		available := maxInt(good-consumed, 0)
		switch k {
		case KindAM7:
			st.ConsumedAM7 = consumed
			st.AvailableAM7 = available
		case KindAU8:
			st.ConsumedAU8 = consumed
			st.AvailableAU8 = available
		}
	}
	st.ConsumedTotal = st.ConsumedAM7 + st.ConsumedAU8
	st.AvailableTotal = st.AvailableAM7 + st.AvailableAU8
	st.PairsAvailable = minInt(st.AvailableAM7, st.AvailableAU8)
	return &st, nil
}

// completedGoodSerials returns the normalized serials of completed, non-NG
// boards of one kind. This is the candidate set for consumption matching.
func completedGoodSerials(kind string) (map[string]bool, error) {
	rows, err := db.Query(`SELECT serial_number FROM boards
		WHERE kind = ? AND stage = 'completed' AND ng_flag = 0`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	serials := map[string]bool{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		serials[normalizeSerial(s)] = true
	}
	return serials, rows.Err()
}

// countConsumed counts how many of the candidate serials appear in the
// consumption ledger's column for this kind. An absent ledger file means
// nothing was consumed yet. The ledger is opened read-only and never
// written.
func countConsumed(kind string, candidates map[string]bool) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}
	col := ledgerColumnFor(kind)
	if col == "" {
		return 0, fmt.Errorf("no ledger column for kind %s", kind)
	}
	if _, err := os.Stat(ledgerPath); os.IsNotExist(err) {
		return 0, nil
	}

	ledger, err := sql.Open("sqlite", "file:"+ledgerPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return 0, err
	}
	defer ledger.Close()

	// col comes from validated config, never from request input.
	rows, err := ledger.Query(fmt.Sprintf(
		`SELECT DISTINCT %s FROM scans WHERE %s IS NOT NULL AND %s != 'N/A'`, col, col, col))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return 0, err
		}
		n := normalizeSerial(s)
		if candidates[n] {
			seen[n] = true
		}
	}
	return len(seen), rows.Err()
}

// inventorySummary projects a statistics snapshot into the dashboard shape.
func inventorySummary() (*InventorySummary, error) {
	st, err := getStatistics()
	if err != nil {
		return nil, err
	}
	return &InventorySummary{
		AvailableAM7:   st.AvailableAM7,
		AvailableAU8:   st.AvailableAU8,
		AvailableTotal: st.AvailableTotal,
		UsedAM7:        st.ConsumedAM7,
		UsedAU8:        st.ConsumedAU8,
		UsedTotal:      st.ConsumedTotal,
		CompletedAM7:   st.CompletedByKind[KindAM7],
		CompletedAU8:   st.CompletedByKind[KindAU8],
		PairsAvailable: st.PairsAvailable,
	}, nil
}

// weekBounds returns the Monday 00:00 start and next-Monday end of the
// facility week containing now.
func weekBounds(now time.Time) (time.Time, time.Time) {
	now = now.In(facilityTZ)
	offset := (int(now.Weekday()) + 6) % 7
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, facilityTZ).
		AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// weeklyStats buckets each board by its latest history event inside the
// current Mon-Sun facility week. Boards untouched this week do not appear.
func weeklyStats() (*WeeklyStats, error) {
	start, end := weekBounds(time.Now())
	startStr := start.Format("2006-01-02T15:04:05")
	endStr := end.Format("2006-01-02T15:04:05")

	ws := WeeklyStats{
		Range:           fmt.Sprintf("%s – %s", start.Format("2006-01-02"), end.AddDate(0, 0, -1).Format("2006-01-02")),
		CompletedByKind: map[string]int{KindAM7: 0, KindAU8: 0},
	}

	rows, err := db.Query(`SELECT b.kind, h.stage FROM board_history h
		JOIN boards b ON b.id = h.board_id
		WHERE h.timestamp >= ? AND h.timestamp < ?
		  AND h.id = (SELECT MAX(h2.id) FROM board_history h2
		              WHERE h2.board_id = h.board_id
		                AND h2.timestamp >= ? AND h2.timestamp < ?)`,
		startStr, endStr, startStr, endStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind, stage string
		if err := rows.Scan(&kind, &stage); err != nil {
			return nil, err
		}
		switch stage {
		case StageAging:
			ws.Aging++
		case StageCoating:
			ws.Coating++
		case StageCompleted:
			ws.Completed++
			ws.CompletedByKind[kind]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ws.Pairs = minInt(ws.CompletedByKind[KindAM7], ws.CompletedByKind[KindAU8])
	return &ws, nil
}
