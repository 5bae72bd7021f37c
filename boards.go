package main

import (
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var boardSeq atomic.Int64

// newBoardID builds a board identifier from the slip number and scan
// instant. The sequence suffix keeps rapid-fire scanner bursts unique
// within one millisecond.
func newBoardID(slipNumber string) string {
	ms := time.Now().UnixMilli()
	seq := boardSeq.Add(1) % 1000
	if slipNumber != "" {
		return fmt.Sprintf("%s-%s-%d%03d", slipNumber, todayKey(), ms, seq)
	}
	return fmt.Sprintf("BRD-%d%03d", ms, seq)
}

// defaultBatch derives the batch number when the caller omits one.
func defaultBatch(slipNumber string) string {
	if slipNumber != "" {
		return fmt.Sprintf("%s-%s", slipNumber, todayKey())
	}
	return fmt.Sprintf("BATCH-%s", todayKey())
}

// createBoard inserts a new board plus its opening history row. The serial
// must not already exist; kind is inferred from the serial when empty.
func createBoard(bc BoardCreate) (*Board, error) {
	serial := strings.TrimSpace(bc.SerialNumber)
	kind := strings.ToUpper(strings.TrimSpace(bc.Kind))
	if kind == "" {
		kind = inferKind(serial)
	}
	if !isValidKind(kind) {
		return nil, invalidTransitionErr("cannot determine kind for serial %s", serial)
	}
	// New boards always enter at aging; later stages are reachable only by
	// advancing (or admin override on an existing board).
	if bc.Stage != "" && bc.Stage != StageAging {
		return nil, invalidTransitionErr("new boards start at %s, cannot create at %s", StageAging, bc.Stage)
	}
	stage := StageAging

	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM boards WHERE serial_number = ?", serial).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, conflictErr("board %s already exists", serial)
	}

	if bc.SlipNumber != "" {
		target := 0
		if bc.TargetPairs != nil {
			target = *bc.TargetPairs
		}
		if err := ensureSlip(bc.SlipNumber, target); err != nil {
			return nil, err
		}
	}

	batch := strings.TrimSpace(bc.BatchNumber)
	if batch == "" {
		batch = defaultBatch(bc.SlipNumber)
	}
	now := nowISO()
	id := newBoardID(bc.SlipNumber)

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO boards
		(id, serial_number, batch_number, kind, stage, start_time, last_update, operator, slip_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, serial, batch, kind, stage, now, now, bc.Operator, nullIfEmpty(bc.SlipNumber))
	if err != nil {
		// A racing create can slip past the count check above and lose to
		// the UNIQUE constraint instead.
		if isUniqueViolation(err) {
			return nil, conflictErr("board %s already exists", serial)
		}
		return nil, err
	}
	_, err = tx.Exec(`INSERT INTO board_history (board_id, stage, timestamp, operator, notes)
		VALUES (?, ?, ?, ?, ?)`,
		id, stage, now, bc.Operator, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return getBoardBySerial(serial)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanBoardRow(row *sql.Row) (*Board, error) {
	var b Board
	var slip sql.NullString
	var ngFlag int
	err := row.Scan(&b.ID, &b.SerialNumber, &b.BatchNumber, &b.Kind, &b.Stage,
		&b.StartTime, &b.LastUpdate, &b.Operator, &slip, &ngFlag, &b.NGReason, &b.NGTime)
	if err == sql.ErrNoRows {
		return nil, notFoundErr("board not found")
	}
	if err != nil {
		return nil, err
	}
	b.SlipNumber = slip.String
	b.NGFlag = ngFlag != 0
	return &b, nil
}

const boardCols = `id, serial_number, batch_number, kind, stage, start_time, last_update, operator, slip_number, ng_flag, ng_reason, ng_time`

// getBoardBySerial loads a board with its full stage history.
func getBoardBySerial(serial string) (*Board, error) {
	row := db.QueryRow("SELECT "+boardCols+" FROM boards WHERE serial_number = ?", strings.TrimSpace(serial))
	b, err := scanBoardRow(row)
	if err != nil {
		return nil, err
	}
	if err := loadHistory(b); err != nil {
		return nil, err
	}
	return b, nil
}

func getBoardByID(id string) (*Board, error) {
	row := db.QueryRow("SELECT "+boardCols+" FROM boards WHERE id = ?", id)
	b, err := scanBoardRow(row)
	if err != nil {
		return nil, err
	}
	if err := loadHistory(b); err != nil {
		return nil, err
	}
	return b, nil
}

func loadHistory(b *Board) error {
	rows, err := db.Query(`SELECT stage, timestamp, operator, COALESCE(notes, '')
		FROM board_history WHERE board_id = ? ORDER BY id`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	b.History = nil
	for rows.Next() {
		var ev StageEvent
		if err := rows.Scan(&ev.Stage, &ev.Timestamp, &ev.Operator, &ev.Notes); err != nil {
			return err
		}
		b.History = append(b.History, ev)
	}
	return rows.Err()
}

// boardFilters narrows listBoards. Zero values mean no filter.
type boardFilters struct {
	Stage  string
	Kind   string
	Batch  string
	Slip   string
	Search string
	NGOnly bool
	Limit  int
}

// listBoards returns boards newest activity first. History is not hydrated
// for list views.
func listBoards(f boardFilters) ([]Board, error) {
	query := "SELECT " + boardCols + " FROM boards WHERE 1=1"
	var args []any
	if f.Stage != "" {
		query += " AND stage = ?"
		args = append(args, f.Stage)
	}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, strings.ToUpper(f.Kind))
	}
	if f.Batch != "" {
		query += " AND batch_number = ?"
		args = append(args, f.Batch)
	}
	if f.Slip != "" {
		query += " AND slip_number = ?"
		args = append(args, f.Slip)
	}
	if f.Search != "" {
		query += " AND (serial_number LIKE ? OR batch_number LIKE ?)"
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}
	if f.NGOnly {
		query += " AND ng_flag = 1"
	}
	query += " ORDER BY last_update DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := []Board{}
	for rows.Next() {
		var b Board
		var slip sql.NullString
		var ngFlag int
		if err := rows.Scan(&b.ID, &b.SerialNumber, &b.BatchNumber, &b.Kind, &b.Stage,
			&b.StartTime, &b.LastUpdate, &b.Operator, &slip, &ngFlag, &b.NGReason, &b.NGTime); err != nil {
			return nil, err
		}
		b.SlipNumber = slip.String
		b.NGFlag = ngFlag != 0
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// advanceBoardStage applies a requested stage to an existing board. Repeats
// of the current stage are accepted without a history row; any other request
// must be the immediate successor and must not repeat a stage the board
// already reached today.
func advanceBoardStage(serial, requested, operator, notes string) (*Board, error) {
	b, err := getBoardBySerial(serial)
	if err != nil {
		return nil, err
	}
	noop, err := validateTransition(b.Stage, requested)
	if err != nil {
		return nil, err
	}
	if noop {
		return b, nil
	}

	// Same-day duplicate guard: a board that already recorded this stage
	// today was double-scanned (or re-advanced after an admin regression).
	var dup int
	err = db.QueryRow(`SELECT COUNT(*) FROM board_history
		WHERE board_id = ? AND stage = ? AND substr(timestamp, 1, 10) = ?`,
		b.ID, requested, todayKey()).Scan(&dup)
	if err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, conflictErr("board %s already scanned at %s today", b.SerialNumber, requested)
	}

	now := nowISO()
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE boards SET stage = ?, last_update = ?, operator = ? WHERE id = ?",
		requested, now, operator, b.ID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`INSERT INTO board_history (board_id, stage, timestamp, operator, notes)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, requested, now, operator, nullIfEmpty(notes)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return getBoardBySerial(serial)
}

// setDefect flags or clears NG on a board. Stage is untouched; an NG board
// keeps moving through the line but is excluded from pairing math.
func setDefect(serial string, ng bool, reason, operator string) (*Board, error) {
	b, err := getBoardBySerial(serial)
	if err != nil {
		return nil, err
	}
	now := nowISO()
	if ng {
		if _, err := db.Exec("UPDATE boards SET ng_flag = 1, ng_reason = ?, ng_time = ?, last_update = ?, operator = ? WHERE id = ?",
			nullIfEmpty(reason), now, now, operator, b.ID); err != nil {
			return nil, err
		}
	} else {
		if _, err := db.Exec("UPDATE boards SET ng_flag = 0, ng_reason = NULL, ng_time = NULL, last_update = ?, operator = ? WHERE id = ?",
			now, operator, b.ID); err != nil {
			return nil, err
		}
	}
	return getBoardBySerial(serial)
}

// adminEditBoard applies an unrestricted correction. Stage changes bypass
// ordering rules and are recorded in history as an admin edit.
func adminEditBoard(serial string, patch BoardAdminPatch, operator string) (*Board, error) {
	b, err := getBoardBySerial(serial)
	if err != nil {
		return nil, err
	}

	if patch.SerialNumber != nil && *patch.SerialNumber != b.SerialNumber {
		var exists int
		if err := db.QueryRow("SELECT COUNT(*) FROM boards WHERE serial_number = ? AND id != ?",
			*patch.SerialNumber, b.ID).Scan(&exists); err != nil {
			return nil, err
		}
		if exists > 0 {
			return nil, conflictErr("serial %s already in use", *patch.SerialNumber)
		}
	}
	if patch.Kind != nil && !isValidKind(strings.ToUpper(*patch.Kind)) {
		return nil, invalidTransitionErr("invalid kind %q", *patch.Kind)
	}
	if patch.Stage != nil && !isValidStage(*patch.Stage) {
		return nil, invalidTransitionErr("invalid stage %q", *patch.Stage)
	}
	if patch.SlipNumber != nil && *patch.SlipNumber != "" {
		target := 0
		if patch.TargetPairs != nil {
			target = *patch.TargetPairs
		}
		if err := ensureSlip(*patch.SlipNumber, target); err != nil {
			return nil, err
		}
	}

	now := nowISO()
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sets := []string{"last_update = ?", "operator = ?"}
	args := []any{now, operator}
	if patch.SerialNumber != nil {
		sets = append(sets, "serial_number = ?")
		args = append(args, *patch.SerialNumber)
	}
	if patch.BatchNumber != nil {
		sets = append(sets, "batch_number = ?")
		args = append(args, *patch.BatchNumber)
	}
	if patch.Kind != nil {
		sets = append(sets, "kind = ?")
		args = append(args, strings.ToUpper(*patch.Kind))
	}
	if patch.Stage != nil {
		sets = append(sets, "stage = ?")
		args = append(args, *patch.Stage)
	}
	if patch.SlipNumber != nil {
		sets = append(sets, "slip_number = ?")
		args = append(args, nullIfEmpty(*patch.SlipNumber))
	}
	if patch.StartTime != nil {
		sets = append(sets, "start_time = ?")
		args = append(args, *patch.StartTime)
	}
	args = append(args, b.ID)
	if _, err := tx.Exec("UPDATE boards SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		return nil, err
	}

	if patch.Stage != nil && *patch.Stage != b.Stage {
		note := "admin edit"
		if patch.Note != nil && *patch.Note != "" {
			note = "admin edit: " + *patch.Note
		}
		if _, err := tx.Exec(`INSERT INTO board_history (board_id, stage, timestamp, operator, notes)
			VALUES (?, ?, ?, ?, ?)`,
			b.ID, *patch.Stage, now, operator, note); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return getBoardByID(b.ID)
}

// attachSlip links an existing board to a slip, recording the attach as its
// own history row at the current stage so it survives a rejected advance.
func attachSlip(serial, slipNumber string, targetPairs int, operator string) (*Board, error) {
	b, err := getBoardBySerial(serial)
	if err != nil {
		return nil, err
	}
	if b.SlipNumber == slipNumber {
		return b, nil
	}
	if err := ensureSlip(slipNumber, targetPairs); err != nil {
		return nil, err
	}

	now := nowISO()
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE boards SET slip_number = ?, last_update = ?, operator = ? WHERE id = ?",
		slipNumber, now, operator, b.ID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`INSERT INTO board_history (board_id, stage, timestamp, operator, notes)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Stage, now, operator, "attach slip "+slipNumber); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return getBoardBySerial(serial)
}

// deleteBoard removes a board and its history.
func deleteBoard(serial string) error {
	b, err := getBoardBySerial(serial)
	if err != nil {
		return err
	}
	_, err = db.Exec("DELETE FROM boards WHERE id = ?", b.ID)
	return err
}
