package main

import (
	"database/sql"
	"strings"
)

// ensureSlip creates a slip record if it does not exist. An existing slip's
// target is only raised, never lowered, by the implicit path; explicit edits
// go through upsertSlip.
func ensureSlip(slipNumber string, targetPairs int) error {
	slipNumber = strings.TrimSpace(slipNumber)
	if slipNumber == "" {
		return nil
	}
	now := nowISO()
	_, err := db.Exec(`INSERT INTO slips (slip_number, target_pairs, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slip_number) DO UPDATE SET
			target_pairs = MAX(target_pairs, excluded.target_pairs),
			updated_at = excluded.updated_at`,
		slipNumber, targetPairs, now, now)
	return err
}

func getSlip(slipNumber string) (*Slip, error) {
	var s Slip
	err := db.QueryRow(`SELECT slip_number, target_pairs, created_at, updated_at
		FROM slips WHERE slip_number = ?`, slipNumber).
		Scan(&s.SlipNumber, &s.TargetPairs, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, notFoundErr("slip not found")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// upsertSlip creates or overwrites a slip target.
func upsertSlip(up SlipUpsert) (*Slip, error) {
	slipNumber := strings.TrimSpace(up.SlipNumber)
	if slipNumber == "" {
		return nil, invalidTransitionErr("slip number is required")
	}
	if up.TargetPairs < 0 {
		return nil, invalidTransitionErr("target pairs cannot be negative")
	}
	now := nowISO()
	_, err := db.Exec(`INSERT INTO slips (slip_number, target_pairs, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slip_number) DO UPDATE SET
			target_pairs = excluded.target_pairs,
			updated_at = excluded.updated_at`,
		slipNumber, up.TargetPairs, now, now)
	if err != nil {
		return nil, err
	}
	return getSlip(slipNumber)
}

// patchSlipTarget sets the target for a slip, creating it when absent.
func patchSlipTarget(slipNumber string, target int) (*Slip, error) {
	return upsertSlip(SlipUpsert{SlipNumber: slipNumber, TargetPairs: target})
}

// deleteSlip removes a slip. Slips still referenced by boards are kept so
// board rows never point at a vanished packing list.
func deleteSlip(slipNumber string) error {
	var refs int
	if err := db.QueryRow("SELECT COUNT(*) FROM boards WHERE slip_number = ?", slipNumber).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return conflictErr("slip %s is referenced by %d boards", slipNumber, refs)
	}
	res, err := db.Exec("DELETE FROM slips WHERE slip_number = ?", slipNumber)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFoundErr("slip not found")
	}
	return nil
}

// stagePairCounts returns per-stage good-board counts split by kind for one
// slip. NG boards are excluded: a flagged board cannot complete a pair.
func stagePairCounts(slipNumber string) (map[string]map[string]int, error) {
	rows, err := db.Query(`SELECT stage, kind, COUNT(*)
		FROM boards WHERE slip_number = ? AND ng_flag = 0
		GROUP BY stage, kind`, slipNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]map[string]int{}
	for rows.Next() {
		var stage, kind string
		var n int
		if err := rows.Scan(&stage, &kind, &n); err != nil {
			return nil, err
		}
		if counts[stage] == nil {
			counts[stage] = map[string]int{}
		}
		counts[stage][kind] = n
	}
	return counts, rows.Err()
}

func pairOf(byKind map[string]int) int {
	return minInt(byKind[KindAM7], byKind[KindAU8])
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// slipStatus computes the full progress report for one slip. Raw stage
// counts include NG boards; every pair figure excludes them.
func slipStatus(slipNumber string) (*SlipStatus, error) {
	slip, err := getSlip(slipNumber)
	if err != nil {
		return nil, err
	}

	st := SlipStatus{SlipNumber: slip.SlipNumber, TargetPairs: slip.TargetPairs}

	rows, err := db.Query(`SELECT stage, COUNT(*) FROM boards
		WHERE slip_number = ? GROUP BY stage`, slipNumber)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			rows.Close()
			return nil, err
		}
		switch stage {
		case StageAging:
			st.Aging = n
		case StageCoating:
			st.Coating = n
		case StageCompleted:
			st.Completed = n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	good, err := stagePairCounts(slipNumber)
	if err != nil {
		return nil, err
	}
	st.CompletedAM7 = good[StageCompleted][KindAM7]
	st.CompletedAU8 = good[StageCompleted][KindAU8]
	st.AgingPairs = pairOf(good[StageAging])
	st.CoatingPairs = pairOf(good[StageCoating])
	st.CompletedPairs = pairOf(good[StageCompleted])
	st.WIPPairs = st.AgingPairs + st.CoatingPairs
	st.RemainingPairs = maxInt(st.TargetPairs-st.CompletedPairs, 0)
	projected := minInt(st.TargetPairs, st.CompletedPairs+st.WIPPairs)
	st.RemainingPairsAfterWIP = maxInt(st.TargetPairs-projected, 0)
	return &st, nil
}

// listSlips returns the slip overview, newest update first.
func listSlips() ([]SlipListItem, error) {
	rows, err := db.Query(`SELECT s.slip_number, s.target_pairs, s.updated_at,
			COALESCE(SUM(CASE WHEN b.stage = 'aging' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN b.stage = 'coating' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN b.stage = 'completed' THEN 1 ELSE 0 END), 0)
		FROM slips s
		LEFT JOIN boards b ON b.slip_number = s.slip_number
		GROUP BY s.slip_number
		ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []SlipListItem{}
	for rows.Next() {
		var it SlipListItem
		if err := rows.Scan(&it.SlipNumber, &it.TargetPairs, &it.UpdatedAt,
			&it.Aging, &it.Coating, &it.Completed); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Completed pairs need the NG-excluded per-kind split, computed per slip.
	for i := range items {
		good, err := stagePairCounts(items[i].SlipNumber)
		if err != nil {
			return nil, err
		}
		items[i].CompletedPairs = pairOf(good[StageCompleted])
	}
	return items, nil
}
